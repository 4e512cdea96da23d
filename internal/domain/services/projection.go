package services

import (
	"context"
	"sort"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"golang.org/x/sync/errgroup"
)

// RoleRef identifies a family role in projections.
type RoleRef struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// TypeRef identifies a relationship type in projections.
type TypeRef struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// ReferenceRef is a resolved reference item. Label is empty when the code
// is not in the catalog.
type ReferenceRef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// PartnerSummary is the other party of a relationship.
type PartnerSummary struct {
	ID       int64         `json:"id"`
	FullName string        `json:"full_name"`
	Gender   *ReferenceRef `json:"gender"`
	AgeYears *int          `json:"age_years"`
}

// RelationshipProjection is a relationship seen from one person's side.
type RelationshipProjection struct {
	ID                int64          `json:"id"`
	RelationshipType  TypeRef        `json:"relationship_type"`
	StartedOn         *string        `json:"started_on"`
	EndedOn           *string        `json:"ended_on"`
	RelationshipYears *int           `json:"relationship_years"`
	IsCurrent         bool           `json:"is_current"`
	Notes             string         `json:"notes"`
	Partner           PartnerSummary `json:"partner"`
}

// PersonProfile is the flattened person payload.
type PersonProfile struct {
	ID             int64                    `json:"id"`
	FullName       string                   `json:"full_name"`
	FirstName      string                   `json:"first_name"`
	SecondName     string                   `json:"second_name"`
	LastName       string                   `json:"last_name"`
	SecondLastName string                   `json:"second_last_name"`
	Nickname       string                   `json:"nickname"`
	Gender         *ReferenceRef            `json:"gender"`
	Identity       string                   `json:"identity"`
	Email          string                   `json:"email"`
	Cellphone      string                   `json:"cellphone"`
	DateOfBirth    *string                  `json:"date_of_birth"`
	AgeYears       *int                     `json:"age_years"`
	IsDeceased     bool                     `json:"is_deceased"`
	DateOfDeath    *string                  `json:"date_of_death"`
	References     map[string]ReferenceRef  `json:"references"`
	Relationships  []RelationshipProjection `json:"relationships"`
}

// MemberProjection is a membership with its person profile.
type MemberProjection struct {
	ID         int64         `json:"id"`
	Role       RoleRef       `json:"role"`
	IsPrimary  bool          `json:"is_primary"`
	JoinedDate *string       `json:"joined_date"`
	LeftDate   *string       `json:"left_date"`
	Notes      string        `json:"notes"`
	Person     PersonProfile `json:"person"`
}

// FamilyProjection is the nested family payload.
type FamilyProjection struct {
	ID           int64                         `json:"id"`
	Name         *string                       `json:"name"`
	FullLastName string                        `json:"full_last_name"`
	LastNames    [entities.MaxLastNames]string `json:"last_names"`
	Description  string                        `json:"description"`
	IsActive     bool                          `json:"is_active"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
	MemberCount  int                           `json:"member_count"`
	Members      []MemberProjection            `json:"members"`
}

// PersonMembership is one family a person belongs to.
type PersonMembership struct {
	FamilyID   int64   `json:"family_id"`
	FamilyName *string `json:"family_name"`
	Role       RoleRef `json:"role"`
	IsPrimary  bool    `json:"is_primary"`
	JoinedDate *string `json:"joined_date"`
	LeftDate   *string `json:"left_date"`
}

// MarriageProjection is a marriage seen from one spouse's side.
type MarriageProjection struct {
	ID        int64          `json:"id"`
	MarriedOn string         `json:"married_on"`
	EndedOn   *string        `json:"ended_on"`
	EndReason *ReferenceRef  `json:"end_reason"`
	IsCurrent bool           `json:"is_current"`
	Years     *int           `json:"years"`
	Spouse    PartnerSummary `json:"spouse"`
}

// PersonDetail is a profile plus the person's memberships and marriages.
type PersonDetail struct {
	PersonProfile
	Memberships []PersonMembership   `json:"memberships"`
	Marriages   []MarriageProjection `json:"marriages"`
}

// Projector assembles read-side payloads from the Entity Store.
type Projector struct {
	relationalDB ports.RelationalDB
	now          func() time.Time
}

// NewProjector creates a new Projector.
func NewProjector(relationalDB ports.RelationalDB) *Projector {
	return &Projector{
		relationalDB: relationalDB,
		now:          time.Now,
	}
}

// ListFamilies projects every visible family ordered by surname parts then id.
func (p *Projector) ListFamilies(ctx context.Context, includeInactive bool) ([]*FamilyProjection, error) {
	families, err := p.relationalDB.ListFamilies(ctx, includeInactive)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "listing families")
	}

	sess, err := p.session(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*FamilyProjection, 0, len(families))
	for _, f := range families {
		proj, _, err := sess.family(ctx, f)
		if err != nil {
			return nil, err
		}
		result = append(result, proj)
	}
	return result, nil
}

// GetFamily projects one family. Hidden inactive families are NotFound.
func (p *Projector) GetFamily(ctx context.Context, id int64, includeInactive bool) (*FamilyProjection, error) {
	f, err := loadVisibleFamily(ctx, p.relationalDB, id, includeInactive)
	if err != nil {
		return nil, err
	}
	return p.ProjectFamily(ctx, f)
}

// ProjectFamily projects a family that has already been loaded.
func (p *Projector) ProjectFamily(ctx context.Context, f *entities.Family) (*FamilyProjection, error) {
	sess, err := p.session(ctx)
	if err != nil {
		return nil, err
	}
	proj, _, err := sess.family(ctx, f)
	return proj, err
}

// GetPerson projects a person with memberships and marriages.
func (p *Projector) GetPerson(ctx context.Context, id int64) (*PersonDetail, error) {
	person, err := p.relationalDB.FindPersonByID(ctx, id)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading person")
	}
	if person == nil {
		return nil, lerrors.New(lerrors.CodePersonNotFound, "person not found", lerrors.FieldPersonID(id))
	}

	sess, err := p.session(ctx)
	if err != nil {
		return nil, err
	}
	sess.people[person.ID] = person

	var (
		rels        []*entities.PersonRelationship
		memberships []*entities.Membership
		marriages   []*entities.Marriage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rels, err = p.relationalDB.RelationshipsOf(gctx, []int64{id})
		return err
	})
	g.Go(func() error {
		var err error
		memberships, err = p.relationalDB.MembershipsOf(gctx, []int64{id})
		return err
	})
	g.Go(func() error {
		var err error
		marriages, err = p.relationalDB.MarriagesOf(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading person graph")
	}

	others := make([]int64, 0, len(rels)+len(marriages))
	for _, rel := range rels {
		others = append(others, rel.OtherParty(id))
	}
	for _, m := range marriages {
		others = append(others, m.Spouse(id))
	}
	if err := sess.loadPeople(ctx, others); err != nil {
		return nil, err
	}

	detail := &PersonDetail{
		PersonProfile: sess.profile(person, rels),
		Memberships:   make([]PersonMembership, 0, len(memberships)),
		Marriages:     make([]MarriageProjection, 0, len(marriages)),
	}

	for _, ms := range memberships {
		f, err := p.relationalDB.FindFamilyByID(ctx, ms.FamilyID)
		if err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family")
		}
		if f == nil {
			continue
		}
		detail.Memberships = append(detail.Memberships, PersonMembership{
			FamilyID:   f.ID,
			FamilyName: f.DisplayName(),
			Role:       roleRef(ms.Role),
			IsPrimary:  ms.IsPrimary,
			JoinedDate: entities.FormatDate(ms.JoinedDate),
			LeftDate:   entities.FormatDate(ms.LeftDate),
		})
	}

	for _, m := range marriages {
		asOf := sess.asOf
		if m.EndedOn != nil {
			asOf = *m.EndedOn
		}
		married := m.MarriedOn
		proj := MarriageProjection{
			ID:        m.ID,
			MarriedOn: m.MarriedOn.Format(entities.DateLayout),
			EndedOn:   entities.FormatDate(m.EndedOn),
			IsCurrent: m.IsActive(),
			Years:     entities.AgeYears(&married, asOf),
			Spouse:    sess.partner(m.Spouse(id)),
		}
		if m.EndReasonCode != "" {
			ref := sess.reference(entities.ReferenceMarriageEndReason, m.EndReasonCode)
			proj.EndReason = &ref
		}
		detail.Marriages = append(detail.Marriages, proj)
	}

	return detail, nil
}

// projectionSession caches catalogs and people for the duration of one
// request so a traversal loads each person at most once.
type projectionSession struct {
	db     ports.RelationalDB
	asOf   time.Time
	people map[int64]*entities.Person
	types  map[int64]*entities.RelationshipType
	refs   map[string]map[string]*entities.ReferenceItem
}

func (p *Projector) session(ctx context.Context) (*projectionSession, error) {
	sess := &projectionSession{
		db:     p.relationalDB,
		asOf:   entities.Date(p.now()),
		people: make(map[int64]*entities.Person),
		types:  make(map[int64]*entities.RelationshipType),
		refs:   make(map[string]map[string]*entities.ReferenceItem),
	}

	types, err := p.relationalDB.ListRelationshipTypes(ctx)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationship types")
	}
	for _, rt := range types {
		sess.types[rt.ID] = rt
	}

	items, err := p.relationalDB.ListReferenceItems(ctx)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading reference items")
	}
	for _, item := range items {
		byCode, ok := sess.refs[item.Category]
		if !ok {
			byCode = make(map[string]*entities.ReferenceItem)
			sess.refs[item.Category] = byCode
		}
		byCode[item.Code] = item
	}
	return sess, nil
}

// family projects f and also returns its memberships in projection order.
func (s *projectionSession) family(ctx context.Context, f *entities.Family) (*FamilyProjection, []*entities.Membership, error) {
	members, err := s.db.MembersOf(ctx, f.ID)
	if err != nil {
		return nil, nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading members", lerrors.FieldFamilyID(f.ID))
	}

	personIDs := uniquePersonIDs(members)

	var rels []*entities.PersonRelationship
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loadPeople(gctx, personIDs)
	})
	g.Go(func() error {
		var err error
		rels, err = s.db.RelationshipsOf(gctx, personIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family people", lerrors.FieldFamilyID(f.ID))
	}

	partners := make([]int64, 0, len(rels)*2)
	for _, rel := range rels {
		partners = append(partners, rel.PersonID, rel.PartnerID)
	}
	if err := s.loadPeople(ctx, partners); err != nil {
		return nil, nil, err
	}

	proj := &FamilyProjection{
		ID:           f.ID,
		Name:         f.DisplayName(),
		FullLastName: f.FullLastName(),
		LastNames:    f.LastNames,
		Description:  f.Description,
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
		MemberCount:  len(members),
		Members:      make([]MemberProjection, 0, len(members)),
	}
	for _, ms := range members {
		person, ok := s.people[ms.PersonID]
		if !ok {
			person = &entities.Person{ID: ms.PersonID}
		}
		proj.Members = append(proj.Members, MemberProjection{
			ID:         ms.ID,
			Role:       roleRef(ms.Role),
			IsPrimary:  ms.IsPrimary,
			JoinedDate: entities.FormatDate(ms.JoinedDate),
			LeftDate:   entities.FormatDate(ms.LeftDate),
			Notes:      ms.Notes,
			Person:     s.profile(person, rels),
		})
	}
	return proj, members, nil
}

// loadPeople fetches the ids not yet cached. It is called from at most one
// goroutine at a time per session.
func (s *projectionSession) loadPeople(ctx context.Context, ids []int64) error {
	missing := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.people[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	people, err := s.db.FindPeopleByIDs(ctx, missing)
	if err != nil {
		return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading people")
	}
	for _, person := range people {
		s.people[person.ID] = person
	}
	return nil
}

// profile projects person with the relationships among rels that involve
// them, deduplicated by id.
func (s *projectionSession) profile(person *entities.Person, rels []*entities.PersonRelationship) PersonProfile {
	prof := PersonProfile{
		ID:             person.ID,
		FullName:       person.FullName(),
		FirstName:      person.FirstName,
		SecondName:     person.SecondName,
		LastName:       person.LastName,
		SecondLastName: person.SecondLastName,
		Nickname:       person.Nickname,
		Gender:         s.gender(person),
		Identity:       person.Identity,
		Email:          person.Email,
		Cellphone:      person.Cellphone,
		DateOfBirth:    entities.FormatDate(person.DateOfBirth),
		AgeYears:       entities.AgeYears(person.DateOfBirth, s.asOf),
		IsDeceased:     person.IsDeceased,
		DateOfDeath:    entities.FormatDate(person.DateOfDeath),
		References:     make(map[string]ReferenceRef, len(person.References)),
		Relationships:  make([]RelationshipProjection, 0, 2),
	}
	for category, code := range person.References {
		prof.References[category] = s.reference(category, code)
	}

	seen := make(map[int64]bool, len(rels))
	for _, rel := range rels {
		if !rel.Involves(person.ID) || seen[rel.ID] {
			continue
		}
		seen[rel.ID] = true
		prof.Relationships = append(prof.Relationships, s.relationship(rel, person.ID))
	}
	sortRelationships(prof.Relationships)
	return prof
}

func (s *projectionSession) relationship(rel *entities.PersonRelationship, viewer int64) RelationshipProjection {
	proj := RelationshipProjection{
		ID:        rel.ID,
		StartedOn: entities.FormatDate(rel.StartedOn),
		EndedOn:   entities.FormatDate(rel.EndedOn),
		IsCurrent: rel.IsActive(),
		Notes:     rel.Notes,
		Partner:   s.partner(rel.OtherParty(viewer)),
	}
	if rt, ok := s.types[rel.TypeID]; ok {
		proj.RelationshipType = TypeRef{ID: rt.ID, Code: rt.Code, Label: rt.Label}
	} else {
		proj.RelationshipType = TypeRef{ID: rel.TypeID}
	}
	if rel.StartedOn != nil {
		asOf := s.asOf
		if rel.EndedOn != nil {
			asOf = *rel.EndedOn
		}
		proj.RelationshipYears = entities.AgeYears(rel.StartedOn, asOf)
	}
	return proj
}

func (s *projectionSession) partner(id int64) PartnerSummary {
	person, ok := s.people[id]
	if !ok {
		return PartnerSummary{ID: id}
	}
	return PartnerSummary{
		ID:       person.ID,
		FullName: person.FullName(),
		Gender:   s.gender(person),
		AgeYears: entities.AgeYears(person.DateOfBirth, s.asOf),
	}
}

func (s *projectionSession) gender(person *entities.Person) *ReferenceRef {
	code := person.Reference(entities.ReferenceGender)
	if code == "" {
		return nil
	}
	ref := s.reference(entities.ReferenceGender, code)
	return &ref
}

func (s *projectionSession) reference(category, code string) ReferenceRef {
	if item, ok := s.refs[category][code]; ok {
		return ReferenceRef{Code: item.Code, Label: item.Label}
	}
	return ReferenceRef{Code: code}
}

func (s *projectionSession) fullName(id int64) string {
	if person, ok := s.people[id]; ok {
		return person.FullName()
	}
	return ""
}

// sortRelationships orders by start date descending, unset dates last,
// then by id.
func sortRelationships(rels []RelationshipProjection) {
	sort.SliceStable(rels, func(i, j int) bool {
		a, b := rels[i].StartedOn, rels[j].StartedOn
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return rels[i].ID < rels[j].ID
	})
}

func roleRef(role entities.FamilyRole) RoleRef {
	return RoleRef{ID: role.ID, Code: role.Code, Name: role.Name}
}

func uniquePersonIDs(members []*entities.Membership) []int64 {
	ids := make([]int64, 0, len(members))
	seen := make(map[int64]bool, len(members))
	for _, ms := range members {
		if !seen[ms.PersonID] {
			seen[ms.PersonID] = true
			ids = append(ids, ms.PersonID)
		}
	}
	return ids
}

// loadVisibleFamily returns the family or NotFound when it is missing or
// hidden by the inclusion filter.
func loadVisibleFamily(ctx context.Context, db ports.RelationalDB, id int64, includeInactive bool) (*entities.Family, error) {
	f, err := db.FindFamilyByID(ctx, id)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family", lerrors.FieldFamilyID(id))
	}
	if f == nil || (!f.IsActive && !includeInactive) {
		return nil, lerrors.New(lerrors.CodeFamilyNotFound, "family not found",
			lerrors.FieldFamilyID(id),
			lerrors.Field("include_inactive", includeInactive))
	}
	return f, nil
}
