package services

import (
	"context"
	"errors"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

// CreateRelationshipInput describes a new person-to-person relationship.
// EndedOn is set only when recording a historical relationship.
type CreateRelationshipInput struct {
	PersonID  int64      `validate:"required,gt=0"`
	PartnerID int64      `validate:"required,gt=0"`
	TypeCode  string     `validate:"required,max=30"`
	StartedOn *time.Time
	EndedOn   *time.Time
	Notes     string     `validate:"max=255"`
}

// RelationshipService enforces the symmetric relationship invariants:
// no self-relationships, canonical (lo, hi) storage and at most one active
// relationship per pair and type.
type RelationshipService struct {
	relationalDB ports.RelationalDB
	observer     Observer
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(relationalDB ports.RelationalDB, observer Observer) *RelationshipService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &RelationshipService{
		relationalDB: relationalDB,
		observer:     observer,
	}
}

// Create validates, canonicalizes and stores a relationship. The conflict
// check and the insert run in one transaction.
func (s *RelationshipService) Create(ctx context.Context, in CreateRelationshipInput) (*entities.PersonRelationship, error) {
	rel, err := s.create(ctx, in)
	s.observer.ObserveWrite("relationship.create", outcomeOf(err))
	return rel, err
}

func (s *RelationshipService) create(ctx context.Context, in CreateRelationshipInput) (*entities.PersonRelationship, error) {
	if in.PersonID == in.PartnerID {
		return nil, lerrors.New(lerrors.CodeRelationshipCreateInvalid, "a person cannot have a relationship with themselves",
			lerrors.FieldPersonID(in.PersonID))
	}
	if err := validateInput(lerrors.CodeRelationshipCreateInvalid, in); err != nil {
		return nil, err
	}
	in.StartedOn, in.EndedOn = dateOrNil(in.StartedOn), dateOrNil(in.EndedOn)
	if in.StartedOn != nil && in.EndedOn != nil && in.EndedOn.Before(*in.StartedOn) {
		return nil, lerrors.New(lerrors.CodeRelationshipCreateInvalid, "ended_on precedes started_on")
	}

	var created *entities.PersonRelationship
	err := s.relationalDB.WithTx(ctx, func(tx ports.Tx) error {
		lo, hi := entities.CanonicalPair(in.PersonID, in.PartnerID)

		rt, err := tx.FindRelationshipTypeByCode(ctx, in.TypeCode)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationship type")
		}
		if rt == nil || !rt.IsActive {
			return lerrors.New(lerrors.CodeRelationshipTypeNotFound, "relationship type not found",
				lerrors.Field("type", in.TypeCode))
		}

		if err := requirePeople(ctx, tx, lo, hi); err != nil {
			return err
		}

		if in.EndedOn == nil {
			existing, err := tx.FindActiveRelationship(ctx, lo, hi, rt.ID)
			if err != nil {
				return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "checking active relationship")
			}
			if existing != nil {
				return activeRelationshipConflict(lo, hi, rt.Code, existing.ID)
			}
		}

		rel := &entities.PersonRelationship{
			PersonID:  lo,
			PartnerID: hi,
			TypeID:    rt.ID,
			StartedOn: in.StartedOn,
			EndedOn:   in.EndedOn,
			Notes:     in.Notes,
		}
		if err := tx.InsertRelationship(ctx, rel); err != nil {
			if isWriteRace(err) {
				return activeRelationshipConflict(lo, hi, rt.Code, 0)
			}
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving relationship")
		}
		created = rel
		return nil
	})
	if err != nil {
		return nil, s.mapCommitError(err, in)
	}
	return created, nil
}

// End closes an active relationship on endedOn.
func (s *RelationshipService) End(ctx context.Context, id int64, endedOn time.Time) (*entities.PersonRelationship, error) {
	rel, err := s.end(ctx, id, entities.Date(endedOn))
	s.observer.ObserveWrite("relationship.end", outcomeOf(err))
	return rel, err
}

func (s *RelationshipService) end(ctx context.Context, id int64, endedOn time.Time) (*entities.PersonRelationship, error) {
	var ended *entities.PersonRelationship
	err := s.relationalDB.WithTx(ctx, func(tx ports.Tx) error {
		rel, err := tx.FindRelationshipByID(ctx, id)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationship")
		}
		if rel == nil {
			return lerrors.New(lerrors.CodeRelationshipNotFound, "relationship not found",
				lerrors.Field("relationship_id", id))
		}
		if !rel.IsActive() {
			return lerrors.New(lerrors.CodeRelationshipEndInvalid, "relationship already ended",
				lerrors.Field("relationship_id", id),
				lerrors.Field("ended_on", rel.EndedOn.Format(entities.DateLayout)))
		}
		if rel.StartedOn != nil && endedOn.Before(*rel.StartedOn) {
			return lerrors.New(lerrors.CodeRelationshipEndInvalid, "ended_on precedes started_on",
				lerrors.Field("relationship_id", id),
				lerrors.Field("started_on", rel.StartedOn.Format(entities.DateLayout)))
		}

		if err := tx.EndRelationship(ctx, id, endedOn); err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "ending relationship")
		}
		rel.EndedOn = &endedOn
		ended = rel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}

// CurrentPartner returns the other party of personID's active relationship
// of the given type, or nil when there is none.
func (s *RelationshipService) CurrentPartner(ctx context.Context, personID int64, typeCode string) (*entities.Person, error) {
	rt, err := s.relationalDB.FindRelationshipTypeByCode(ctx, typeCode)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationship type")
	}
	if rt == nil {
		return nil, lerrors.New(lerrors.CodeRelationshipTypeNotFound, "relationship type not found",
			lerrors.Field("type", typeCode))
	}

	rels, err := s.relationalDB.RelationshipsOf(ctx, []int64{personID})
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading relationships")
	}
	for _, rel := range rels {
		if rel.TypeID == rt.ID && rel.IsActive() && rel.Involves(personID) {
			partner, err := s.relationalDB.FindPersonByID(ctx, rel.OtherParty(personID))
			if err != nil {
				return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading partner")
			}
			return partner, nil
		}
	}
	return nil, nil
}

// mapCommitError turns a commit-time uniqueness failure into the typed
// conflict the pre-check would have produced.
func (s *RelationshipService) mapCommitError(err error, in CreateRelationshipInput) error {
	if lerrors.CodeOf(err) == "" && isWriteRace(err) {
		lo, hi := entities.CanonicalPair(in.PersonID, in.PartnerID)
		return activeRelationshipConflict(lo, hi, in.TypeCode, 0)
	}
	return err
}

func activeRelationshipConflict(lo, hi int64, typeCode string, existingID int64) error {
	fields := []lerrors.Attr{
		lerrors.Field("person_id", lo),
		lerrors.Field("partner_id", hi),
		lerrors.Field("type", typeCode),
	}
	if existingID != 0 {
		fields = append(fields, lerrors.Field("relationship_id", existingID))
	}
	return lerrors.New(lerrors.CodeRelationshipConflictActive, "an active relationship of this type already exists", fields...)
}

// requirePeople fails with NotFound when any id has no person.
func requirePeople(ctx context.Context, tx ports.Tx, ids ...int64) error {
	for _, id := range ids {
		p, err := tx.FindPersonByID(ctx, id)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading person")
		}
		if p == nil {
			return lerrors.New(lerrors.CodePersonNotFound, "person not found", lerrors.FieldPersonID(id))
		}
	}
	return nil
}

func isWriteRace(err error) bool {
	return errors.Is(err, ports.ErrUniqueViolation) || errors.Is(err, ports.ErrWriteConflict)
}

func dateOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entities.Date(*t)
	return &d
}
