package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/parsers"
)

// Seed document sections, in import order.
const (
	SectionReferences        = "references"
	SectionFamilyRoles       = "family_roles"
	SectionRelationshipTypes = "relationship_types"
	SectionPeople            = "people"
	SectionFamilies          = "families"
	SectionMembers           = "members"
	SectionRelationships     = "relationships"
	SectionMarriages         = "marriages"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Resolve keys and check dates without saving
}

// ImportError represents an error for a single record during import.
type ImportError struct {
	Section string // Document section
	Index   int    // Position in the section (1-indexed)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%d].%s: %s", e.Section, e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s[%d]: %s", e.Section, e.Index, e.Message)
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported map[string]int // Records written (or accepted on dry run) per section
	Errors   []ImportError
}

// Total returns the number of records imported across sections.
func (r *ImportResult) Total() int {
	var n int
	for _, c := range r.Imported {
		n += c
	}
	return n
}

func (r *ImportResult) fail(section string, index int, field, value, msg string) {
	r.Errors = append(r.Errors, ImportError{Section: section, Index: index + 1, Field: field, Value: value, Message: msg})
}

// ImportService loads seed documents into the Entity Store. Relationships
// and marriages go through the same services as interactive writes.
type ImportService struct {
	relationalDB  ports.RelationalDB
	relationships *RelationshipService
	marriages     *MarriageService
}

// NewImportService creates a new import service.
func NewImportService(relationalDB ports.RelationalDB, relationships *RelationshipService, marriages *MarriageService) *ImportService {
	return &ImportService{
		relationalDB:  relationalDB,
		relationships: relationships,
		marriages:     marriages,
	}
}

// importRun is the working state of one Import call.
type importRun struct {
	opts      ImportOptions
	result    *ImportResult
	people    map[string]int64 // local key -> person id (0 on dry run)
	roles     map[string]bool  // role codes from the document
	relTypes  map[string]bool  // relationship type codes from the document
	endReason map[string]bool  // marriage end reason codes from the document
}

// Import validates and stores doc. Per-record problems are collected in the
// result; only store failures abort the import.
func (s *ImportService) Import(ctx context.Context, doc *parsers.SeedDocument, opts ImportOptions) (*ImportResult, error) {
	run := &importRun{
		opts:      opts,
		result:    &ImportResult{Imported: make(map[string]int)},
		people:    make(map[string]int64, len(doc.People)),
		roles:     make(map[string]bool, len(doc.FamilyRoles)),
		relTypes:  make(map[string]bool, len(doc.RelationshipTypes)),
		endReason: make(map[string]bool),
	}

	steps := []func(context.Context, *parsers.SeedDocument, *importRun) error{
		s.importReferences,
		s.importFamilyRoles,
		s.importRelationshipTypes,
		s.importPeople,
		s.importFamilies,
		s.importRelationships,
		s.importMarriages,
	}
	for _, step := range steps {
		if err := step(ctx, doc, run); err != nil {
			return nil, err
		}
	}
	return run.result, nil
}

func (s *ImportService) importReferences(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.References {
		if raw.Category == "" || raw.Code == "" {
			run.result.fail(SectionReferences, i, "code", raw.Code, "category and code are required")
			continue
		}
		if raw.Category == entities.ReferenceMarriageEndReason {
			run.endReason[raw.Code] = true
		}
		if !run.opts.DryRun {
			item := &entities.ReferenceItem{
				Category:     raw.Category,
				Code:         raw.Code,
				Label:        raw.Label,
				DisplayOrder: raw.DisplayOrder,
				IsActive:     true,
			}
			if err := s.relationalDB.SaveReferenceItem(ctx, item); err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving reference item")
			}
		}
		run.result.Imported[SectionReferences]++
	}
	return nil
}

func (s *ImportService) importFamilyRoles(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.FamilyRoles {
		if raw.Code == "" {
			run.result.fail(SectionFamilyRoles, i, "code", "", "code is required")
			continue
		}
		run.roles[raw.Code] = true
		if !run.opts.DryRun {
			role := &entities.FamilyRole{
				Code:         raw.Code,
				Name:         raw.Name,
				Description:  raw.Description,
				IsActive:     true,
				DisplayOrder: raw.DisplayOrder,
			}
			if err := s.relationalDB.SaveFamilyRole(ctx, role); err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving family role")
			}
		}
		run.result.Imported[SectionFamilyRoles]++
	}
	return nil
}

func (s *ImportService) importRelationshipTypes(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.RelationshipTypes {
		if raw.Code == "" {
			run.result.fail(SectionRelationshipTypes, i, "code", "", "code is required")
			continue
		}
		run.relTypes[raw.Code] = true
		if !run.opts.DryRun {
			rt := &entities.RelationshipType{
				Code:        raw.Code,
				Label:       raw.Label,
				Description: raw.Description,
				IsActive:    true,
				Order:       raw.Order,
			}
			if err := s.relationalDB.SaveRelationshipType(ctx, rt); err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving relationship type")
			}
		}
		run.result.Imported[SectionRelationshipTypes]++
	}
	return nil
}

func (s *ImportService) importPeople(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.People {
		index := i
		if raw.LineNum > 0 {
			index = raw.LineNum - 1
		}
		if raw.Key == "" {
			run.result.fail(SectionPeople, index, "key", "", "key is required")
			continue
		}
		if _, dup := run.people[raw.Key]; dup {
			run.result.fail(SectionPeople, index, "key", raw.Key, "duplicate person key")
			continue
		}
		if raw.FirstName == "" || raw.LastName == "" {
			run.result.fail(SectionPeople, index, "first_name", raw.FirstName, "first_name and last_name are required")
			continue
		}
		birth, ok := run.date(SectionPeople, index, "date_of_birth", raw.DateOfBirth)
		if !ok {
			continue
		}
		death, ok := run.date(SectionPeople, index, "date_of_death", raw.DateOfDeath)
		if !ok {
			continue
		}

		person := &entities.Person{
			FirstName:      raw.FirstName,
			SecondName:     raw.SecondName,
			LastName:       raw.LastName,
			SecondLastName: raw.SecondLastName,
			Nickname:       raw.Nickname,
			Identity:       raw.Identity,
			Email:          raw.Email,
			Cellphone:      raw.Cellphone,
			DateOfBirth:    birth,
			IsDeceased:     raw.IsDeceased || death != nil,
			DateOfDeath:    death,
			References:     raw.References,
		}
		if !run.opts.DryRun {
			if err := s.relationalDB.SavePerson(ctx, person); err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving person", lerrors.Field("key", raw.Key))
			}
		}
		run.people[raw.Key] = person.ID
		run.result.Imported[SectionPeople]++
	}
	return nil
}

func (s *ImportService) importFamilies(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.Families {
		if len(raw.LastNames) > entities.MaxLastNames {
			run.result.fail(SectionFamilies, i, "last_names", fmt.Sprint(raw.LastNames),
				fmt.Sprintf("at most %d last names", entities.MaxLastNames))
			continue
		}

		f := &entities.Family{Description: raw.Description, IsActive: raw.Active == nil || *raw.Active}
		copy(f.LastNames[:], raw.LastNames)
		if !run.opts.DryRun {
			if err := s.relationalDB.SaveFamily(ctx, f); err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving family", lerrors.Field("key", raw.Key))
			}
		}
		run.result.Imported[SectionFamilies]++

		for j, rm := range raw.Members {
			if err := s.importMember(ctx, f, j, rm, run); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ImportService) importMember(ctx context.Context, f *entities.Family, index int, raw parsers.RawMember, run *importRun) error {
	personID, ok := run.people[raw.Person]
	if !ok {
		run.result.fail(SectionMembers, index, "person", raw.Person, "unknown person key")
		return nil
	}
	roleID, ok, err := s.resolveRole(ctx, raw.Role, run)
	if err != nil {
		return err
	}
	if !ok {
		run.result.fail(SectionMembers, index, "role", raw.Role, "unknown family role")
		return nil
	}
	joined, ok := run.date(SectionMembers, index, "joined_date", raw.JoinedDate)
	if !ok {
		return nil
	}
	left, ok := run.date(SectionMembers, index, "left_date", raw.LeftDate)
	if !ok {
		return nil
	}

	if !run.opts.DryRun {
		member := &entities.FamilyMember{
			FamilyID:   f.ID,
			PersonID:   personID,
			RoleID:     roleID,
			IsPrimary:  raw.Primary,
			JoinedDate: joined,
			LeftDate:   left,
			Notes:      raw.Notes,
		}
		if err := s.relationalDB.SaveFamilyMember(ctx, member); err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving family member", lerrors.FieldFamilyID(f.ID))
		}
	}
	run.result.Imported[SectionMembers]++
	return nil
}

func (s *ImportService) resolveRole(ctx context.Context, code string, run *importRun) (int64, bool, error) {
	if run.opts.DryRun && run.roles[code] {
		return 0, true, nil
	}
	role, err := s.relationalDB.FindFamilyRoleByCode(ctx, code)
	if err != nil {
		return 0, false, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family role")
	}
	if role == nil || !role.IsActive {
		return 0, false, nil
	}
	return role.ID, true, nil
}

func (s *ImportService) importRelationships(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.Relationships {
		personID, ok := run.person(SectionRelationships, i, "person", raw.Person)
		if !ok {
			continue
		}
		partnerID, ok := run.person(SectionRelationships, i, "partner", raw.Partner)
		if !ok {
			continue
		}
		started, ok := run.date(SectionRelationships, i, "started_on", raw.StartedOn)
		if !ok {
			continue
		}
		ended, ok := run.date(SectionRelationships, i, "ended_on", raw.EndedOn)
		if !ok {
			continue
		}

		if run.opts.DryRun {
			if raw.Person == raw.Partner {
				run.result.fail(SectionRelationships, i, "partner", raw.Partner, "a person cannot have a relationship with themselves")
				continue
			}
			known, err := s.knownRelationshipType(ctx, raw.Type, run)
			if err != nil {
				return err
			}
			if !known {
				run.result.fail(SectionRelationships, i, "type", raw.Type, "unknown relationship type")
				continue
			}
			run.result.Imported[SectionRelationships]++
			continue
		}

		_, err := s.relationships.Create(ctx, CreateRelationshipInput{
			PersonID:  personID,
			PartnerID: partnerID,
			TypeCode:  raw.Type,
			StartedOn: started,
			EndedOn:   ended,
			Notes:     raw.Notes,
		})
		if err != nil {
			if !isRecordError(err) {
				return err
			}
			run.result.fail(SectionRelationships, i, "", "", err.Error())
			continue
		}
		run.result.Imported[SectionRelationships]++
	}
	return nil
}

func (s *ImportService) knownRelationshipType(ctx context.Context, code string, run *importRun) (bool, error) {
	if run.relTypes[code] {
		return true, nil
	}
	rt, err := s.relationalDB.FindRelationshipTypeByCode(ctx, code)
	if err != nil {
		return false, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationship type")
	}
	return rt != nil && rt.IsActive, nil
}

func (s *ImportService) importMarriages(ctx context.Context, doc *parsers.SeedDocument, run *importRun) error {
	for i, raw := range doc.Marriages {
		husbandID, ok := run.person(SectionMarriages, i, "husband", raw.Husband)
		if !ok {
			continue
		}
		wifeID, ok := run.person(SectionMarriages, i, "wife", raw.Wife)
		if !ok {
			continue
		}
		if raw.MarriedOn == "" {
			run.result.fail(SectionMarriages, i, "married_on", "", "married_on is required")
			continue
		}
		married, ok := run.date(SectionMarriages, i, "married_on", raw.MarriedOn)
		if !ok {
			continue
		}
		ended, ok := run.date(SectionMarriages, i, "ended_on", raw.EndedOn)
		if !ok {
			continue
		}

		if run.opts.DryRun {
			if raw.Husband == raw.Wife {
				run.result.fail(SectionMarriages, i, "wife", raw.Wife, "husband and wife must be different people")
				continue
			}
			if raw.EndReason != "" {
				known, err := s.knownEndReason(ctx, raw.EndReason, run)
				if err != nil {
					return err
				}
				if !known {
					run.result.fail(SectionMarriages, i, "end_reason", raw.EndReason, "unknown marriage end reason")
					continue
				}
			}
			run.result.Imported[SectionMarriages]++
			continue
		}

		_, err := s.marriages.Create(ctx, CreateMarriageInput{
			HusbandID: husbandID,
			WifeID:    wifeID,
			MarriedOn: *married,
			EndedOn:   ended,
			EndReason: raw.EndReason,
			Notes:     raw.Notes,
		})
		if err != nil {
			if !isRecordError(err) {
				return err
			}
			run.result.fail(SectionMarriages, i, "", "", err.Error())
			continue
		}
		run.result.Imported[SectionMarriages]++
	}
	return nil
}

func (s *ImportService) knownEndReason(ctx context.Context, code string, run *importRun) (bool, error) {
	if run.endReason[code] {
		return true, nil
	}
	item, err := s.relationalDB.FindReferenceItem(ctx, entities.ReferenceMarriageEndReason, code)
	if err != nil {
		return false, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading end reason")
	}
	return item != nil && item.IsActive, nil
}

// person resolves a local person key, recording an error when unknown.
func (r *importRun) person(section string, index int, field, key string) (int64, bool) {
	id, ok := r.people[key]
	if !ok {
		r.result.fail(section, index, field, key, "unknown person key")
	}
	return id, ok
}

// date parses an optional date, recording an error when malformed.
func (r *importRun) date(section string, index int, field, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	d, err := entities.ParseDate(value)
	if err != nil {
		r.result.fail(section, index, field, value, "expected a YYYY-MM-DD date")
		return nil, false
	}
	return &d, true
}

// isRecordError reports errors that reject a single record rather than the
// whole import.
func isRecordError(err error) bool {
	return lerrors.IsInvalidInput(err) || lerrors.IsConflict(err) || lerrors.IsNotFound(err)
}
