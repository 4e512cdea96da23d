package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
)

// RelationalDB is an in-memory implementation of ports.RelationalDB.
// WithTx serializes transactions and restores relationships and marriages
// when fn fails. Inserts emulate the partial unique indexes of the real
// stores.
type RelationalDB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	People            map[int64]*entities.Person
	Families          map[int64]*entities.Family
	Roles             map[int64]*entities.FamilyRole
	Members           map[int64]*entities.FamilyMember
	RelationshipTypes map[int64]*entities.RelationshipType
	Relationships     map[int64]*entities.PersonRelationship
	Marriages         map[int64]*entities.Marriage
	References        map[int64]*entities.ReferenceItem

	// Err, when set, is returned by every operation.
	Err error
	// FailOn returns an error from a single named operation.
	FailOn map[string]error
	// Calls counts invocations per operation.
	Calls map[string]int
	// Hooks run when the named operation is called, with the store lock
	// held. A hook may edit the maps directly to stage a concurrent write.
	Hooks map[string]func()

	nextID int64
}

var (
	_ ports.RelationalDB = (*RelationalDB)(nil)
	_ ports.Tx           = (*tx)(nil)
)

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{
		People:            make(map[int64]*entities.Person),
		Families:          make(map[int64]*entities.Family),
		Roles:             make(map[int64]*entities.FamilyRole),
		Members:           make(map[int64]*entities.FamilyMember),
		RelationshipTypes: make(map[int64]*entities.RelationshipType),
		Relationships:     make(map[int64]*entities.PersonRelationship),
		Marriages:         make(map[int64]*entities.Marriage),
		References:        make(map[int64]*entities.ReferenceItem),
		FailOn:            make(map[string]error),
		Calls:             make(map[string]int),
		Hooks:             make(map[string]func()),
	}
}

// fail records the call and returns the configured error, if any.
// Callers hold mu.
func (m *RelationalDB) fail(op string) error {
	m.Calls[op]++
	if hook := m.Hooks[op]; hook != nil {
		hook()
	}
	if m.Err != nil {
		return m.Err
	}
	return m.FailOn[op]
}

func (m *RelationalDB) id() int64 {
	m.nextID++
	return m.nextID
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail("EnsureSchema")
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

// WithTx runs fn while holding the transaction lock.
func (m *RelationalDB) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	if err := m.fail("WithTx"); err != nil {
		m.mu.Unlock()
		return err
	}
	rels := make(map[int64]entities.PersonRelationship, len(m.Relationships))
	for id, r := range m.Relationships {
		rels[id] = *r
	}
	marriages := make(map[int64]entities.Marriage, len(m.Marriages))
	for id, mar := range m.Marriages {
		marriages[id] = *mar
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fn(&tx{db: m}); err != nil {
		m.mu.Lock()
		m.Relationships = make(map[int64]*entities.PersonRelationship, len(rels))
		for id, r := range rels {
			r := r
			m.Relationships[id] = &r
		}
		m.Marriages = make(map[int64]*entities.Marriage, len(marriages))
		for id, mar := range marriages {
			mar := mar
			m.Marriages[id] = &mar
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// Catalog operations.

// SaveFamilyRole upserts a role by code.
func (m *RelationalDB) SaveFamilyRole(_ context.Context, role *entities.FamilyRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveFamilyRole"); err != nil {
		return err
	}
	for id, existing := range m.Roles {
		if existing.Code == role.Code {
			role.ID = id
		}
	}
	if role.ID == 0 {
		role.ID = m.id()
	}
	cp := *role
	m.Roles[role.ID] = &cp
	return nil
}

// FindFamilyRoleByCode finds a role by its code.
func (m *RelationalDB) FindFamilyRoleByCode(_ context.Context, code string) (*entities.FamilyRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindFamilyRoleByCode"); err != nil {
		return nil, err
	}
	for _, role := range m.Roles {
		if role.Code == code {
			cp := *role
			return &cp, nil
		}
	}
	return nil, nil
}

// ListFamilyRoles lists all roles ordered by display order.
func (m *RelationalDB) ListFamilyRoles(_ context.Context) ([]*entities.FamilyRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListFamilyRoles"); err != nil {
		return nil, err
	}
	result := make([]*entities.FamilyRole, 0, len(m.Roles))
	for _, role := range m.Roles {
		cp := *role
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

// SaveRelationshipType upserts a relationship type by code.
func (m *RelationalDB) SaveRelationshipType(_ context.Context, rt *entities.RelationshipType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveRelationshipType"); err != nil {
		return err
	}
	for id, existing := range m.RelationshipTypes {
		if existing.Code == rt.Code {
			rt.ID = id
		}
	}
	if rt.ID == 0 {
		rt.ID = m.id()
	}
	cp := *rt
	m.RelationshipTypes[rt.ID] = &cp
	return nil
}

// FindRelationshipTypeByCode finds a relationship type by its code.
func (m *RelationalDB) FindRelationshipTypeByCode(_ context.Context, code string) (*entities.RelationshipType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindRelationshipTypeByCode"); err != nil {
		return nil, err
	}
	return m.relationshipTypeByCode(code), nil
}

func (m *RelationalDB) relationshipTypeByCode(code string) *entities.RelationshipType {
	for _, rt := range m.RelationshipTypes {
		if rt.Code == code {
			cp := *rt
			return &cp
		}
	}
	return nil
}

// ListRelationshipTypes lists all relationship types ordered by order.
func (m *RelationalDB) ListRelationshipTypes(_ context.Context) ([]*entities.RelationshipType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListRelationshipTypes"); err != nil {
		return nil, err
	}
	result := make([]*entities.RelationshipType, 0, len(m.RelationshipTypes))
	for _, rt := range m.RelationshipTypes {
		cp := *rt
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

// SaveReferenceItem upserts a reference item by (category, code).
func (m *RelationalDB) SaveReferenceItem(_ context.Context, item *entities.ReferenceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveReferenceItem"); err != nil {
		return err
	}
	for id, existing := range m.References {
		if existing.Category == item.Category && existing.Code == item.Code {
			item.ID = id
		}
	}
	if item.ID == 0 {
		item.ID = m.id()
	}
	cp := *item
	m.References[item.ID] = &cp
	return nil
}

// FindReferenceItem finds a reference item by category and code.
func (m *RelationalDB) FindReferenceItem(_ context.Context, category, code string) (*entities.ReferenceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindReferenceItem"); err != nil {
		return nil, err
	}
	return m.referenceItem(category, code), nil
}

func (m *RelationalDB) referenceItem(category, code string) *entities.ReferenceItem {
	for _, item := range m.References {
		if item.Category == category && item.Code == code {
			cp := *item
			return &cp
		}
	}
	return nil
}

// ListReferenceItems lists every reference item.
func (m *RelationalDB) ListReferenceItems(_ context.Context) ([]*entities.ReferenceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListReferenceItems"); err != nil {
		return nil, err
	}
	result := make([]*entities.ReferenceItem, 0, len(m.References))
	for _, item := range m.References {
		cp := *item
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Person operations.

// SavePerson inserts or updates a person.
func (m *RelationalDB) SavePerson(_ context.Context, p *entities.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SavePerson"); err != nil {
		return err
	}
	if p.ID == 0 {
		p.ID = m.id()
	}
	cp := *p
	m.People[p.ID] = &cp
	return nil
}

// FindPersonByID finds a person by ID.
func (m *RelationalDB) FindPersonByID(_ context.Context, id int64) (*entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindPersonByID"); err != nil {
		return nil, err
	}
	return m.person(id), nil
}

func (m *RelationalDB) person(id int64) *entities.Person {
	p, ok := m.People[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// FindPeopleByIDs returns the people that exist among ids.
func (m *RelationalDB) FindPeopleByIDs(_ context.Context, ids []int64) ([]*entities.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindPeopleByIDs"); err != nil {
		return nil, err
	}
	result := make([]*entities.Person, 0, len(ids))
	for _, id := range ids {
		if p := m.person(id); p != nil {
			result = append(result, p)
		}
	}
	return result, nil
}

// DeletePerson deletes an unreferenced person.
func (m *RelationalDB) DeletePerson(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeletePerson"); err != nil {
		return err
	}
	if m.referenced(id) {
		return ports.ErrReferenced
	}
	delete(m.People, id)
	return nil
}

// referenced reports whether anything points at a person. Callers hold mu.
func (m *RelationalDB) referenced(id int64) bool {
	for _, mem := range m.Members {
		if mem.PersonID == id {
			return true
		}
	}
	for _, r := range m.Relationships {
		if r.Involves(id) {
			return true
		}
	}
	for _, mar := range m.Marriages {
		if mar.HusbandID == id || mar.WifeID == id {
			return true
		}
	}
	return false
}

// Family operations.

// SaveFamily inserts or updates a family.
func (m *RelationalDB) SaveFamily(_ context.Context, f *entities.Family) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveFamily"); err != nil {
		return err
	}
	if f.ID == 0 {
		f.ID = m.id()
	}
	cp := *f
	m.Families[f.ID] = &cp
	return nil
}

// FindFamilyByID finds a family by ID.
func (m *RelationalDB) FindFamilyByID(_ context.Context, id int64) (*entities.Family, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindFamilyByID"); err != nil {
		return nil, err
	}
	f, ok := m.Families[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

// ListFamilies lists families ordered by surname components then id.
func (m *RelationalDB) ListFamilies(_ context.Context, includeInactive bool) ([]*entities.Family, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListFamilies"); err != nil {
		return nil, err
	}
	result := make([]*entities.Family, 0, len(m.Families))
	for _, f := range m.Families {
		if !f.IsActive && !includeInactive {
			continue
		}
		cp := *f
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := compareLastNames(result[i], result[j]); c != 0 {
			return c < 0
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SetFamilyActive activates or deactivates a family.
func (m *RelationalDB) SetFamilyActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetFamilyActive"); err != nil {
		return err
	}
	if f, ok := m.Families[id]; ok {
		f.IsActive = active
	}
	return nil
}

// Membership operations.

// SaveFamilyMember inserts or updates a membership.
func (m *RelationalDB) SaveFamilyMember(_ context.Context, mem *entities.FamilyMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveFamilyMember"); err != nil {
		return err
	}
	if mem.ID == 0 {
		mem.ID = m.id()
	}
	cp := *mem
	m.Members[mem.ID] = &cp
	return nil
}

// MembersOf lists the memberships of a family in projection order.
func (m *RelationalDB) MembersOf(_ context.Context, familyID int64) ([]*entities.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MembersOf"); err != nil {
		return nil, err
	}

	result := make([]*entities.Membership, 0, 8)
	for _, mem := range m.Members {
		if mem.FamilyID == familyID {
			result = append(result, m.membership(mem))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Role.DisplayOrder != b.Role.DisplayOrder {
			return a.Role.DisplayOrder < b.Role.DisplayOrder
		}
		pa, pb := m.People[a.PersonID], m.People[b.PersonID]
		fa, fb, la, lb := "", "", "", ""
		if pa != nil {
			fa, la = pa.FirstName, pa.LastName
		}
		if pb != nil {
			fb, lb = pb.FirstName, pb.LastName
		}
		if fa != fb {
			return fa < fb
		}
		if la != lb {
			return la < lb
		}
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		return a.ID < b.ID
	})
	return result, nil
}

// MembershipsOf lists the memberships held by any of personIDs.
func (m *RelationalDB) MembershipsOf(_ context.Context, personIDs []int64) ([]*entities.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MembershipsOf"); err != nil {
		return nil, err
	}

	wanted := make(map[int64]bool, len(personIDs))
	for _, id := range personIDs {
		wanted[id] = true
	}

	result := make([]*entities.Membership, 0, len(personIDs))
	for _, mem := range m.Members {
		if wanted[mem.PersonID] {
			result = append(result, m.membership(mem))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		if a.Role.DisplayOrder != b.Role.DisplayOrder {
			return a.Role.DisplayOrder < b.Role.DisplayOrder
		}
		fa, fb := m.Families[a.FamilyID], m.Families[b.FamilyID]
		if (fa == nil) != (fb == nil) {
			return fa == nil
		}
		if fa != nil {
			if c := compareLastNames(fa, fb); c != 0 {
				return c < 0
			}
		}
		if a.FamilyID != b.FamilyID {
			return a.FamilyID < b.FamilyID
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (m *RelationalDB) membership(mem *entities.FamilyMember) *entities.Membership {
	ms := &entities.Membership{FamilyMember: *mem}
	if role, ok := m.Roles[mem.RoleID]; ok {
		ms.Role = *role
	}
	return ms
}

// Relationship and marriage reads.

// FindRelationshipByID finds a relationship by ID.
func (m *RelationalDB) FindRelationshipByID(_ context.Context, id int64) (*entities.PersonRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindRelationshipByID"); err != nil {
		return nil, err
	}
	r, ok := m.Relationships[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// RelationshipsOf lists relationships where any of personIDs is on either side.
func (m *RelationalDB) RelationshipsOf(_ context.Context, personIDs []int64) ([]*entities.PersonRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RelationshipsOf"); err != nil {
		return nil, err
	}
	wanted := make(map[int64]bool, len(personIDs))
	for _, id := range personIDs {
		wanted[id] = true
	}
	result := make([]*entities.PersonRelationship, 0, 8)
	for _, r := range m.Relationships {
		if wanted[r.PersonID] || wanted[r.PartnerID] {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindMarriageByID finds a marriage by ID.
func (m *RelationalDB) FindMarriageByID(_ context.Context, id int64) (*entities.Marriage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindMarriageByID"); err != nil {
		return nil, err
	}
	return m.marriage(id), nil
}

func (m *RelationalDB) marriage(id int64) *entities.Marriage {
	mar, ok := m.Marriages[id]
	if !ok {
		return nil
	}
	cp := *mar
	return &cp
}

// MarriagesOf lists marriages where personID is husband or wife, most recent first.
func (m *RelationalDB) MarriagesOf(_ context.Context, personID int64) ([]*entities.Marriage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarriagesOf"); err != nil {
		return nil, err
	}
	result := make([]*entities.Marriage, 0, 2)
	for _, mar := range m.Marriages {
		if mar.HusbandID == personID || mar.WifeID == personID {
			cp := *mar
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].MarriedOn.Equal(result[j].MarriedOn) {
			return result[i].MarriedOn.After(result[j].MarriedOn)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// DeleteFamily removes a family but leaves its memberships behind, producing
// the dangling references a traversal must tolerate.
func (m *RelationalDB) DeleteFamily(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Families, id)
}

// tx is the transactional view handed to WithTx callbacks.
type tx struct {
	db *RelationalDB
}

func (t *tx) FindPersonByID(ctx context.Context, id int64) (*entities.Person, error) {
	return t.db.FindPersonByID(ctx, id)
}

func (t *tx) FindRelationshipTypeByCode(ctx context.Context, code string) (*entities.RelationshipType, error) {
	return t.db.FindRelationshipTypeByCode(ctx, code)
}

func (t *tx) FindReferenceItem(ctx context.Context, category, code string) (*entities.ReferenceItem, error) {
	return t.db.FindReferenceItem(ctx, category, code)
}

func (t *tx) FindRelationshipByID(ctx context.Context, id int64) (*entities.PersonRelationship, error) {
	return t.db.FindRelationshipByID(ctx, id)
}

func (t *tx) FindMarriageByID(ctx context.Context, id int64) (*entities.Marriage, error) {
	return t.db.FindMarriageByID(ctx, id)
}

func (t *tx) FindActiveRelationship(_ context.Context, lo, hi, typeID int64) (*entities.PersonRelationship, error) {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindActiveRelationship"); err != nil {
		return nil, err
	}
	if r := m.activeRelationship(lo, hi, typeID); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *RelationalDB) activeRelationship(lo, hi, typeID int64) *entities.PersonRelationship {
	for _, r := range m.Relationships {
		if r.PersonID == lo && r.PartnerID == hi && r.TypeID == typeID && r.IsActive() {
			return r
		}
	}
	return nil
}

func (t *tx) InsertRelationship(_ context.Context, rel *entities.PersonRelationship) error {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertRelationship"); err != nil {
		return err
	}
	if rel.IsActive() && m.activeRelationship(rel.PersonID, rel.PartnerID, rel.TypeID) != nil {
		return ports.ErrUniqueViolation
	}
	rel.ID = m.id()
	now := time.Now().UTC()
	rel.CreatedAt, rel.UpdatedAt = now, now
	cp := *rel
	m.Relationships[rel.ID] = &cp
	return nil
}

func (t *tx) EndRelationship(_ context.Context, id int64, endedOn time.Time) error {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("EndRelationship"); err != nil {
		return err
	}
	r, ok := m.Relationships[id]
	if !ok || !r.IsActive() {
		return ports.ErrWriteConflict
	}
	r.EndedOn = &endedOn
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *tx) FindActiveMarriageFor(_ context.Context, personID int64) (*entities.Marriage, error) {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindActiveMarriageFor"); err != nil {
		return nil, err
	}
	for _, mar := range m.Marriages {
		if mar.IsActive() && (mar.HusbandID == personID || mar.WifeID == personID) {
			cp := *mar
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertMarriage(_ context.Context, mar *entities.Marriage) error {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertMarriage"); err != nil {
		return err
	}
	if mar.IsActive() {
		for _, existing := range m.Marriages {
			if existing.IsActive() && (existing.HusbandID == mar.HusbandID || existing.WifeID == mar.WifeID) {
				return ports.ErrUniqueViolation
			}
		}
	}
	mar.ID = m.id()
	now := time.Now().UTC()
	mar.CreatedAt, mar.UpdatedAt = now, now
	cp := *mar
	m.Marriages[mar.ID] = &cp
	return nil
}

func (t *tx) EndMarriage(_ context.Context, id int64, endedOn time.Time, reasonCode, notes string) error {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("EndMarriage"); err != nil {
		return err
	}
	mar, ok := m.Marriages[id]
	if !ok || !mar.IsActive() {
		return ports.ErrWriteConflict
	}
	mar.EndedOn = &endedOn
	mar.EndReasonCode = reasonCode
	mar.Notes = notes
	mar.UpdatedAt = time.Now().UTC()
	return nil
}

func compareLastNames(a, b *entities.Family) int {
	for i := range a.LastNames {
		if a.LastNames[i] != b.LastNames[i] {
			if a.LastNames[i] < b.LastNames[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (t *tx) PersonReferenced(_ context.Context, personID int64) (bool, error) {
	m := t.db
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("PersonReferenced"); err != nil {
		return false, err
	}
	return m.referenced(personID), nil
}

func (t *tx) DeletePerson(ctx context.Context, id int64) error {
	return t.db.DeletePerson(ctx, id)
}
