package entities

import "time"

// Marriage is a temporal edge between a husband and a wife. Each side may
// hold at most one active marriage.
type Marriage struct {
	ID            int64      `json:"id"`
	HusbandID     int64      `json:"husband_id"`
	WifeID        int64      `json:"wife_id"`
	MarriedOn     time.Time  `json:"married_on"`
	EndedOn       *time.Time `json:"ended_on,omitempty"`
	EndReasonCode string     `json:"end_reason,omitempty"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive reports whether the marriage has no end date.
func (m *Marriage) IsActive() bool {
	return m.EndedOn == nil
}

// Spouse returns the other side of the marriage for personID.
func (m *Marriage) Spouse(personID int64) int64 {
	if m.HusbandID == personID {
		return m.WifeID
	}
	return m.HusbandID
}
