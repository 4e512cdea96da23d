package mocks

import (
	"context"

	"github.com/ersonp/lineage/internal/domain/entities"
)

// Fixture helpers for service tests. They panic on error because the mock
// only fails when told to.

// AddPerson stores a person with the given names.
func (m *RelationalDB) AddPerson(first, last string) *entities.Person {
	p := &entities.Person{FirstName: first, LastName: last}
	must(m.SavePerson(context.Background(), p))
	return p
}

// AddFamily stores a family with up to four surname components.
func (m *RelationalDB) AddFamily(active bool, lastNames ...string) *entities.Family {
	f := &entities.Family{IsActive: active}
	copy(f.LastNames[:], lastNames)
	must(m.SaveFamily(context.Background(), f))
	return f
}

// AddRole stores an active family role.
func (m *RelationalDB) AddRole(code string, displayOrder int) *entities.FamilyRole {
	role := &entities.FamilyRole{Code: code, Name: code, IsActive: true, DisplayOrder: displayOrder}
	must(m.SaveFamilyRole(context.Background(), role))
	return role
}

// AddMember stores a membership of p in f.
func (m *RelationalDB) AddMember(f *entities.Family, p *entities.Person, role *entities.FamilyRole, primary bool) *entities.FamilyMember {
	mem := &entities.FamilyMember{FamilyID: f.ID, PersonID: p.ID, RoleID: role.ID, IsPrimary: primary}
	must(m.SaveFamilyMember(context.Background(), mem))
	return mem
}

// AddRelationshipType stores an active relationship type.
func (m *RelationalDB) AddRelationshipType(code, label string) *entities.RelationshipType {
	rt := &entities.RelationshipType{Code: code, Label: label, IsActive: true}
	must(m.SaveRelationshipType(context.Background(), rt))
	return rt
}

// AddReference stores an active reference item.
func (m *RelationalDB) AddReference(category, code, label string) *entities.ReferenceItem {
	item := &entities.ReferenceItem{Category: category, Code: code, Label: label, IsActive: true}
	must(m.SaveReferenceItem(context.Background(), item))
	return item
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
