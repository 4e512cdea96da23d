// Package entities contains core domain data structures.
package entities

import (
	"strings"
	"time"
)

// Person is an individual tracked by the genealogy. Apart from identity,
// display name, birth date and the deceased flag, its attributes are opaque
// to the core and carried through to projections unchanged.
type Person struct {
	ID             int64      `json:"id"`
	FirstName      string     `json:"first_name"`
	SecondName     string     `json:"second_name"`
	LastName       string     `json:"last_name"`
	SecondLastName string     `json:"second_last_name"`
	Nickname       string     `json:"nickname"`
	Identity       string     `json:"identity"`
	Email          string     `json:"email"`
	Cellphone      string     `json:"cellphone"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	IsDeceased     bool       `json:"is_deceased"`
	DateOfDeath    *time.Time `json:"date_of_death,omitempty"`
	// References maps a reference category (gender, occupation, country...)
	// to the code of the selected item in that category.
	References map[string]string `json:"references,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// FullName returns "first last", trimmed.
func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Reference returns the code the person holds in a reference category.
func (p *Person) Reference(category string) string {
	if p.References == nil {
		return ""
	}
	return p.References[category]
}
