package entities

import "time"

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date at UTC midnight. Genealogical dates
// carry no time of day or zone.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders an optional date, returning nil when unset.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// AgeYears returns the completed years between birth and asOf, clamped at 0.
// It returns nil when birth is unset.
func AgeYears(birth *time.Time, asOf time.Time) *int {
	if birth == nil {
		return nil
	}
	years := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}
