package entities

import "time"

// RelationshipType is a catalog entry for a kind of person-to-person
// relationship (dating, engaged, partner...).
type RelationshipType struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	Order       int    `json:"order"`
}

// PersonRelationship is a symmetric, typed, temporal edge between two
// distinct people. Stored pairs are canonical: PersonID < PartnerID.
type PersonRelationship struct {
	ID        int64      `json:"id"`
	PersonID  int64      `json:"person_id"`
	PartnerID int64      `json:"partner_id"`
	TypeID    int64      `json:"type_id"`
	StartedOn *time.Time `json:"started_on,omitempty"`
	EndedOn   *time.Time `json:"ended_on,omitempty"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive reports whether the relationship has no end date.
func (r *PersonRelationship) IsActive() bool {
	return r.EndedOn == nil
}

// Involves reports whether personID is on either side.
func (r *PersonRelationship) Involves(personID int64) bool {
	return r.PersonID == personID || r.PartnerID == personID
}

// OtherParty returns the id on the side opposite personID.
func (r *PersonRelationship) OtherParty(personID int64) int64 {
	if r.PersonID == personID {
		return r.PartnerID
	}
	return r.PersonID
}

// CanonicalPair orders two person ids so the lower id comes first.
func CanonicalPair(a, b int64) (lo, hi int64) {
	if a <= b {
		return a, b
	}
	return b, a
}
