package services

import (
	"sync"
	"testing"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := entities.ParseDate(s)
	require.NoError(t, err)
	return d
}

// mustDate parses a date outside a test scope, for table literals.
func mustDate(s string) time.Time {
	d, err := entities.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d := date(t, s)
	return &d
}

func fixedClock(t *testing.T, s string) func() time.Time {
	t.Helper()
	d := date(t, s)
	return func() time.Time { return d }
}

// recordingObserver captures every signal for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	trees  []TreeStats
	writes []string
}

func (o *recordingObserver) ObserveTree(stats TreeStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trees = append(o.trees, stats)
}

func (o *recordingObserver) ObserveWrite(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = append(o.writes, op+":"+outcome)
}
