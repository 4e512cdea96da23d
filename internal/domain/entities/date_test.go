package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAgeYears(t *testing.T) {
	tests := []struct {
		name  string
		birth string
		asOf  string
		want  int
	}{
		{name: "day before birthday", birth: "1990-06-15", asOf: "2024-06-14", want: 33},
		{name: "on birthday", birth: "1990-06-15", asOf: "2024-06-15", want: 34},
		{name: "as of before birth clamps to zero", birth: "2025-01-01", asOf: "2024-01-01", want: 0},
		{name: "same day", birth: "2000-03-01", asOf: "2000-03-01", want: 0},
		{name: "earlier month", birth: "1980-12-31", asOf: "2020-01-01", want: 39},
		{name: "leap day birth in non-leap year", birth: "2000-02-29", asOf: "2021-02-28", want: 20},
		{name: "leap day birth on march first", birth: "2000-02-29", asOf: "2021-03-01", want: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			birth := day(t, tt.birth)
			got := AgeYears(&birth, day(t, tt.asOf))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	t.Run("unset birth date is absent", func(t *testing.T) {
		assert.Nil(t, AgeYears(nil, time.Now()))
	})
}

func TestDateTruncatesTimeOfDay(t *testing.T) {
	in := time.Date(2024, 6, 15, 23, 59, 0, 0, time.FixedZone("X", 3600))
	got := Date(in)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestFormatDate(t *testing.T) {
	assert.Nil(t, FormatDate(nil))

	d := day(t, "1999-01-02")
	got := FormatDate(&d)
	require.NotNil(t, got)
	assert.Equal(t, "1999-01-02", *got)
}

func TestParseDateRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "15/06/1990", "2024-06-15T00:00:00Z"} {
		_, err := ParseDate(s)
		assert.Error(t, err, s)
	}
}
