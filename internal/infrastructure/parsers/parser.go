// Package parsers reads seed documents for bulk import.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// SeedDocument is a parsed import document. Records refer to each other by
// local string keys, never by database ids.
type SeedDocument struct {
	References        []RawReference        `json:"references,omitempty" yaml:"references,omitempty"`
	FamilyRoles       []RawFamilyRole       `json:"family_roles,omitempty" yaml:"family_roles,omitempty"`
	RelationshipTypes []RawRelationshipType `json:"relationship_types,omitempty" yaml:"relationship_types,omitempty"`
	People            []RawPerson           `json:"people,omitempty" yaml:"people,omitempty"`
	Families          []RawFamily           `json:"families,omitempty" yaml:"families,omitempty"`
	Relationships     []RawRelationship     `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Marriages         []RawMarriage         `json:"marriages,omitempty" yaml:"marriages,omitempty"`
}

// RawReference is a reference catalog item.
type RawReference struct {
	Category     string `json:"category" yaml:"category"`
	Code         string `json:"code" yaml:"code"`
	Label        string `json:"label" yaml:"label"`
	DisplayOrder int    `json:"display_order,omitempty" yaml:"display_order,omitempty"`
}

// RawFamilyRole is a family role catalog entry.
type RawFamilyRole struct {
	Code         string `json:"code" yaml:"code"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty" yaml:"display_order,omitempty"`
}

// RawRelationshipType is a relationship type catalog entry.
type RawRelationshipType struct {
	Code        string `json:"code" yaml:"code"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// RawPerson is a person keyed by a document-local key. Dates are
// YYYY-MM-DD strings and are checked at import time.
type RawPerson struct {
	Key            string            `json:"key" yaml:"key"`
	FirstName      string            `json:"first_name" yaml:"first_name"`
	SecondName     string            `json:"second_name,omitempty" yaml:"second_name,omitempty"`
	LastName       string            `json:"last_name" yaml:"last_name"`
	SecondLastName string            `json:"second_last_name,omitempty" yaml:"second_last_name,omitempty"`
	Nickname       string            `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	Identity       string            `json:"identity,omitempty" yaml:"identity,omitempty"`
	Email          string            `json:"email,omitempty" yaml:"email,omitempty"`
	Cellphone      string            `json:"cellphone,omitempty" yaml:"cellphone,omitempty"`
	DateOfBirth    string            `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	IsDeceased     bool              `json:"is_deceased,omitempty" yaml:"is_deceased,omitempty"`
	DateOfDeath    string            `json:"date_of_death,omitempty" yaml:"date_of_death,omitempty"`
	References     map[string]string `json:"references,omitempty" yaml:"references,omitempty"`
	LineNum        int               `json:"-" yaml:"-"` // Line number in source file (set by CSV parser)
}

// RawFamily is a family with its members.
type RawFamily struct {
	Key         string      `json:"key" yaml:"key"`
	LastNames   []string    `json:"last_names" yaml:"last_names"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Active      *bool       `json:"active,omitempty" yaml:"active,omitempty"` // Pointer so unset means active
	Members     []RawMember `json:"members,omitempty" yaml:"members,omitempty"`
}

// RawMember places a person key in a family under a role code.
type RawMember struct {
	Person     string `json:"person" yaml:"person"`
	Role       string `json:"role" yaml:"role"`
	Primary    bool   `json:"primary,omitempty" yaml:"primary,omitempty"`
	JoinedDate string `json:"joined_date,omitempty" yaml:"joined_date,omitempty"`
	LeftDate   string `json:"left_date,omitempty" yaml:"left_date,omitempty"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// RawRelationship links two person keys.
type RawRelationship struct {
	Person    string `json:"person" yaml:"person"`
	Partner   string `json:"partner" yaml:"partner"`
	Type      string `json:"type" yaml:"type"`
	StartedOn string `json:"started_on,omitempty" yaml:"started_on,omitempty"`
	EndedOn   string `json:"ended_on,omitempty" yaml:"ended_on,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// RawMarriage links a husband key and a wife key.
type RawMarriage struct {
	Husband   string `json:"husband" yaml:"husband"`
	Wife      string `json:"wife" yaml:"wife"`
	MarriedOn string `json:"married_on" yaml:"married_on"`
	EndedOn   string `json:"ended_on,omitempty" yaml:"ended_on,omitempty"`
	EndReason string `json:"end_reason,omitempty" yaml:"end_reason,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Parser defines the interface for parsing seed documents.
type Parser interface {
	Parse(r io.Reader) (*SeedDocument, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "yaml", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "yaml", "yml":
		return &YAMLParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return nil
	}
	return ForFormat(ext)
}
