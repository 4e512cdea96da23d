package services

import (
	"time"

	lerrors "github.com/ersonp/lineage/internal/errors"
)

// Write outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid_input"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// TreeStats summarizes one full-tree traversal.
type TreeStats struct {
	Families    int
	Connections int
	Truncated   bool
	Reason      string
	Duration    time.Duration
}

// Observer receives operational signals from the services.
type Observer interface {
	ObserveTree(stats TreeStats)
	ObserveWrite(op, outcome string)
}

// NopObserver discards every signal.
type NopObserver struct{}

func (NopObserver) ObserveTree(TreeStats)       {}
func (NopObserver) ObserveWrite(string, string) {}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case lerrors.IsConflict(err):
		return OutcomeConflict
	case lerrors.IsInvalidInput(err):
		return OutcomeInvalid
	case lerrors.IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
