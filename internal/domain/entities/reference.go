package entities

// Reference categories the core knows by name. All other categories are
// carried opaquely.
const (
	ReferenceGender            = "gender"
	ReferenceMarriageEndReason = "marriage_end_reason"
)

// ReferenceItem is an entry of an opaque lookup catalog keyed by category
// and code.
type ReferenceItem struct {
	ID           int64  `json:"id"`
	Category     string `json:"category"`
	Code         string `json:"code"`
	Label        string `json:"label"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}
