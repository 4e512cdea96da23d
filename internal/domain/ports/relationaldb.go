package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
)

var (
	// ErrUniqueViolation is returned when a write collides with a unique
	// index, including the partial indexes over active relationships and
	// marriages.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrWriteConflict is returned when the backend aborts a transaction
	// because a concurrent transaction touched the same rows.
	ErrWriteConflict = errors.New("concurrent write conflict")

	// ErrReferenced is returned when deleting a row other rows still point to.
	ErrReferenced = errors.New("record is still referenced")
)

// RelationalDB is the Entity Store. It owns all persistence for people,
// families, memberships, relationships, marriages and their catalogs.
//
// Find* lookups return (nil, nil) when the row does not exist.
type RelationalDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// WithTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back entirely otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Catalog operations

	// SaveFamilyRole inserts a role, or updates it when the code exists.
	SaveFamilyRole(ctx context.Context, role *entities.FamilyRole) error

	// FindFamilyRoleByCode finds a role by its code.
	FindFamilyRoleByCode(ctx context.Context, code string) (*entities.FamilyRole, error)

	// ListFamilyRoles lists all roles ordered by display order.
	ListFamilyRoles(ctx context.Context) ([]*entities.FamilyRole, error)

	// SaveRelationshipType inserts a type, or updates it when the code exists.
	SaveRelationshipType(ctx context.Context, rt *entities.RelationshipType) error

	// FindRelationshipTypeByCode finds a relationship type by its code.
	FindRelationshipTypeByCode(ctx context.Context, code string) (*entities.RelationshipType, error)

	// ListRelationshipTypes lists all relationship types ordered by order.
	ListRelationshipTypes(ctx context.Context) ([]*entities.RelationshipType, error)

	// SaveReferenceItem inserts an item, or updates it when (category, code) exists.
	SaveReferenceItem(ctx context.Context, item *entities.ReferenceItem) error

	// FindReferenceItem finds a reference item by category and code.
	FindReferenceItem(ctx context.Context, category, code string) (*entities.ReferenceItem, error)

	// ListReferenceItems lists every reference item across all categories.
	ListReferenceItems(ctx context.Context) ([]*entities.ReferenceItem, error)

	// Person operations

	// SavePerson inserts a person when ID is zero and updates it otherwise.
	SavePerson(ctx context.Context, person *entities.Person) error

	// FindPersonByID finds a person by ID.
	FindPersonByID(ctx context.Context, id int64) (*entities.Person, error)

	// FindPeopleByIDs returns the people that exist among ids, in no
	// particular order.
	FindPeopleByIDs(ctx context.Context, ids []int64) ([]*entities.Person, error)

	// DeletePerson deletes a person. Returns ErrReferenced when the person is
	// still a member, relationship party or spouse.
	DeletePerson(ctx context.Context, id int64) error

	// Family operations

	// SaveFamily inserts a family when ID is zero and updates it otherwise.
	SaveFamily(ctx context.Context, family *entities.Family) error

	// FindFamilyByID finds a family by ID regardless of its active flag.
	FindFamilyByID(ctx context.Context, id int64) (*entities.Family, error)

	// ListFamilies lists families ordered by surname components then id.
	ListFamilies(ctx context.Context, includeInactive bool) ([]*entities.Family, error)

	// SetFamilyActive activates or deactivates a family.
	SetFamilyActive(ctx context.Context, id int64, active bool) error

	// Membership operations

	// SaveFamilyMember inserts a membership when ID is zero and updates it otherwise.
	SaveFamilyMember(ctx context.Context, member *entities.FamilyMember) error

	// MembersOf lists the memberships of a family ordered by role display
	// order, person first name, person last name, then person id.
	MembersOf(ctx context.Context, familyID int64) ([]*entities.Membership, error)

	// MembershipsOf lists the memberships held by any of personIDs, grouped
	// by person id and ordered within a person by role display order,
	// family surname components, then family id.
	MembershipsOf(ctx context.Context, personIDs []int64) ([]*entities.Membership, error)

	// Relationship and marriage reads

	// FindRelationshipByID finds a relationship by ID.
	FindRelationshipByID(ctx context.Context, id int64) (*entities.PersonRelationship, error)

	// RelationshipsOf lists relationships where any of personIDs is on
	// either side. Each relationship appears once.
	RelationshipsOf(ctx context.Context, personIDs []int64) ([]*entities.PersonRelationship, error)

	// FindMarriageByID finds a marriage by ID.
	FindMarriageByID(ctx context.Context, id int64) (*entities.Marriage, error)

	// MarriagesOf lists marriages where personID is husband or wife, most
	// recent first.
	MarriagesOf(ctx context.Context, personID int64) ([]*entities.Marriage, error)
}

// Tx is the write surface the relationship enforcer and record guards use
// inside WithTx.
// Every call observes the transaction's own uncommitted writes.
type Tx interface {
	// FindPersonByID finds a person by ID.
	FindPersonByID(ctx context.Context, id int64) (*entities.Person, error)

	// FindRelationshipTypeByCode finds a relationship type by its code.
	FindRelationshipTypeByCode(ctx context.Context, code string) (*entities.RelationshipType, error)

	// FindReferenceItem finds a reference item by category and code.
	FindReferenceItem(ctx context.Context, category, code string) (*entities.ReferenceItem, error)

	// FindActiveRelationship finds the unended relationship of typeID for the
	// canonical pair (lo, hi).
	FindActiveRelationship(ctx context.Context, lo, hi, typeID int64) (*entities.PersonRelationship, error)

	// InsertRelationship stores a canonical relationship and sets its ID.
	InsertRelationship(ctx context.Context, rel *entities.PersonRelationship) error

	// FindRelationshipByID finds a relationship by ID.
	FindRelationshipByID(ctx context.Context, id int64) (*entities.PersonRelationship, error)

	// EndRelationship sets ended_on on an active relationship.
	EndRelationship(ctx context.Context, id int64, endedOn time.Time) error

	// FindActiveMarriageFor finds the unended marriage where personID is
	// husband or wife.
	FindActiveMarriageFor(ctx context.Context, personID int64) (*entities.Marriage, error)

	// InsertMarriage stores a marriage and sets its ID.
	InsertMarriage(ctx context.Context, m *entities.Marriage) error

	// FindMarriageByID finds a marriage by ID.
	FindMarriageByID(ctx context.Context, id int64) (*entities.Marriage, error)

	// EndMarriage sets ended_on, the end reason and notes on an active marriage.
	EndMarriage(ctx context.Context, id int64, endedOn time.Time, reasonCode, notes string) error

	// PersonReferenced reports whether any membership, relationship or
	// marriage points at personID.
	PersonReferenced(ctx context.Context, personID int64) (bool, error)

	// DeletePerson deletes a person. Returns ErrReferenced when the person is
	// still a member, relationship party or spouse.
	DeletePerson(ctx context.Context, id int64) error
}
