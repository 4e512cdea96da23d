package entities

import (
	"fmt"
	"strings"
	"time"
)

// MaxLastNames is the number of ordered surname components a family carries.
const MaxLastNames = 4

// Family is a named group of people. It is deactivated rather than deleted
// once it has members.
type Family struct {
	ID          int64                `json:"id"`
	LastNames   [MaxLastNames]string `json:"last_names"`
	Description string               `json:"description"`
	IsActive    bool                 `json:"is_active"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// FullLastName joins the non-empty surname components with a space.
func (f *Family) FullLastName() string {
	parts := make([]string, 0, MaxLastNames)
	for _, n := range f.LastNames {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}

// DisplayName returns the derived family name, or nil when no surname
// component is set.
func (f *Family) DisplayName() *string {
	name := f.FullLastName()
	if name == "" {
		return nil
	}
	return &name
}

func (f *Family) String() string {
	if name := f.FullLastName(); name != "" {
		return name
	}
	return fmt.Sprintf("Family #%d", f.ID)
}

// FamilyRole is a catalog entry for the role a person holds in a family.
type FamilyRole struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsActive     bool   `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

// FamilyMember joins a Person to a Family with a role.
type FamilyMember struct {
	ID         int64      `json:"id"`
	FamilyID   int64      `json:"family_id"`
	PersonID   int64      `json:"person_id"`
	RoleID     int64      `json:"role_id"`
	IsPrimary  bool       `json:"is_primary"`
	JoinedDate *time.Time `json:"joined_date,omitempty"`
	LeftDate   *time.Time `json:"left_date,omitempty"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Membership is a FamilyMember together with its resolved role, as returned
// by the adjacency lookups.
type Membership struct {
	FamilyMember
	Role FamilyRole `json:"role"`
}
