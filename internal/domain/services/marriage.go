package services

import (
	"context"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

// CreateMarriageInput describes a new marriage. EndedOn and EndReason are
// set only when recording a historical marriage.
type CreateMarriageInput struct {
	HusbandID int64     `validate:"required,gt=0"`
	WifeID    int64     `validate:"required,gt=0"`
	MarriedOn time.Time `validate:"required"`
	EndedOn   *time.Time
	EndReason string `validate:"max=20"`
	Notes     string `validate:"max=255"`
}

// EndMarriageInput closes an active marriage.
type EndMarriageInput struct {
	ID        int64     `validate:"required,gt=0"`
	EndedOn   time.Time `validate:"required"`
	EndReason string    `validate:"max=20"`
	Notes     string    `validate:"max=255"`
}

// MarriageService enforces the marriage invariants: each person holds at
// most one active marriage, married_on is not in the future and ended_on
// does not precede married_on.
type MarriageService struct {
	relationalDB ports.RelationalDB
	observer     Observer
	now          func() time.Time
}

// NewMarriageService creates a new MarriageService.
func NewMarriageService(relationalDB ports.RelationalDB, observer Observer) *MarriageService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &MarriageService{
		relationalDB: relationalDB,
		observer:     observer,
		now:          time.Now,
	}
}

// Create validates and stores a marriage. Each side's active slot is
// checked independently inside the write transaction.
func (s *MarriageService) Create(ctx context.Context, in CreateMarriageInput) (*entities.Marriage, error) {
	m, err := s.create(ctx, in)
	s.observer.ObserveWrite("marriage.create", outcomeOf(err))
	return m, err
}

func (s *MarriageService) create(ctx context.Context, in CreateMarriageInput) (*entities.Marriage, error) {
	if in.HusbandID == in.WifeID && in.HusbandID != 0 {
		return nil, lerrors.New(lerrors.CodeMarriageCreateInvalid, "husband and wife must be different people",
			lerrors.FieldPersonID(in.HusbandID))
	}
	if err := validateInput(lerrors.CodeMarriageCreateInvalid, in); err != nil {
		return nil, err
	}

	marriedOn := entities.Date(in.MarriedOn)
	endedOn := dateOrNil(in.EndedOn)
	if marriedOn.After(entities.Date(s.now())) {
		return nil, lerrors.New(lerrors.CodeMarriageCreateInvalid, "married_on is in the future",
			lerrors.Field("married_on", marriedOn.Format(entities.DateLayout)))
	}
	if endedOn != nil && endedOn.Before(marriedOn) {
		return nil, lerrors.New(lerrors.CodeMarriageCreateInvalid, "ended_on precedes married_on",
			lerrors.Field("married_on", marriedOn.Format(entities.DateLayout)),
			lerrors.Field("ended_on", endedOn.Format(entities.DateLayout)))
	}
	if endedOn == nil && in.EndReason != "" {
		return nil, lerrors.New(lerrors.CodeMarriageCreateInvalid, "end reason requires ended_on")
	}

	var created *entities.Marriage
	err := s.relationalDB.WithTx(ctx, func(tx ports.Tx) error {
		if err := requireEndReason(ctx, tx, lerrors.CodeMarriageCreateInvalid, in.EndReason); err != nil {
			return err
		}
		if err := requirePeople(ctx, tx, in.HusbandID, in.WifeID); err != nil {
			return err
		}

		if endedOn == nil {
			for _, personID := range []int64{in.HusbandID, in.WifeID} {
				active, err := tx.FindActiveMarriageFor(ctx, personID)
				if err != nil {
					return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "checking active marriage")
				}
				if active != nil {
					return activeMarriageConflict(personID, active.ID)
				}
			}
		}

		m := &entities.Marriage{
			HusbandID:     in.HusbandID,
			WifeID:        in.WifeID,
			MarriedOn:     marriedOn,
			EndedOn:       endedOn,
			EndReasonCode: in.EndReason,
			Notes:         in.Notes,
		}
		if err := tx.InsertMarriage(ctx, m); err != nil {
			if isWriteRace(err) {
				return err
			}
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "saving marriage")
		}
		created = m
		return nil
	})
	if err != nil {
		if lerrors.CodeOf(err) == "" && isWriteRace(err) {
			return nil, s.lostRace(ctx, in)
		}
		return nil, err
	}
	return created, nil
}

// End closes an active marriage. The record is left untouched when the
// end date precedes married_on.
func (s *MarriageService) End(ctx context.Context, in EndMarriageInput) (*entities.Marriage, error) {
	m, err := s.end(ctx, in)
	s.observer.ObserveWrite("marriage.end", outcomeOf(err))
	return m, err
}

func (s *MarriageService) end(ctx context.Context, in EndMarriageInput) (*entities.Marriage, error) {
	if err := validateInput(lerrors.CodeMarriageEndInvalid, in); err != nil {
		return nil, err
	}
	endedOn := entities.Date(in.EndedOn)

	var ended *entities.Marriage
	err := s.relationalDB.WithTx(ctx, func(tx ports.Tx) error {
		m, err := tx.FindMarriageByID(ctx, in.ID)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading marriage")
		}
		if m == nil {
			return lerrors.New(lerrors.CodeMarriageNotFound, "marriage not found", lerrors.Field("marriage_id", in.ID))
		}
		if !m.IsActive() {
			return lerrors.New(lerrors.CodeMarriageEndInvalid, "marriage already ended",
				lerrors.Field("marriage_id", in.ID),
				lerrors.Field("ended_on", m.EndedOn.Format(entities.DateLayout)))
		}
		if endedOn.Before(m.MarriedOn) {
			return lerrors.New(lerrors.CodeMarriageEndInvalid, "ended_on precedes married_on",
				lerrors.Field("marriage_id", in.ID),
				lerrors.Field("married_on", m.MarriedOn.Format(entities.DateLayout)),
				lerrors.Field("ended_on", endedOn.Format(entities.DateLayout)))
		}
		if err := requireEndReason(ctx, tx, lerrors.CodeMarriageEndInvalid, in.EndReason); err != nil {
			return err
		}

		notes := m.Notes
		if in.Notes != "" {
			notes = in.Notes
		}
		if err := tx.EndMarriage(ctx, m.ID, endedOn, in.EndReason, notes); err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "ending marriage")
		}

		m.EndedOn = &endedOn
		m.EndReasonCode = in.EndReason
		m.Notes = notes
		ended = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}

// CurrentSpouse returns personID's active marriage and the spouse in it,
// or nils when the person is not married.
func (s *MarriageService) CurrentSpouse(ctx context.Context, personID int64) (*entities.Person, *entities.Marriage, error) {
	marriages, err := s.relationalDB.MarriagesOf(ctx, personID)
	if err != nil {
		return nil, nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading marriages")
	}
	for _, m := range marriages {
		if !m.IsActive() {
			continue
		}
		spouse, err := s.relationalDB.FindPersonByID(ctx, m.Spouse(personID))
		if err != nil {
			return nil, nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading spouse")
		}
		return spouse, m, nil
	}
	return nil, nil, nil
}

func requireEndReason(ctx context.Context, tx ports.Tx, code lerrors.Code, reason string) error {
	if reason == "" {
		return nil
	}
	item, err := tx.FindReferenceItem(ctx, entities.ReferenceMarriageEndReason, reason)
	if err != nil {
		return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading end reason")
	}
	if item == nil || !item.IsActive {
		return lerrors.New(code, "unknown marriage end reason", lerrors.Field("end_reason", reason))
	}
	return nil
}

// lostRace reports a marriage insert that collided with a concurrent one.
// The transaction has rolled back, so both sides are re-read to name the
// person whose slot the other writer took.
func (s *MarriageService) lostRace(ctx context.Context, in CreateMarriageInput) error {
	for _, personID := range []int64{in.HusbandID, in.WifeID} {
		marriages, err := s.relationalDB.MarriagesOf(ctx, personID)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "checking active marriage",
				lerrors.FieldPersonID(personID))
		}
		for _, m := range marriages {
			if m.IsActive() {
				return activeMarriageConflict(personID, m.ID)
			}
		}
	}
	// The competing write did not commit; the husband's slot was checked first.
	return activeMarriageConflict(in.HusbandID, 0)
}

func activeMarriageConflict(personID, marriageID int64) error {
	fields := []lerrors.Attr{lerrors.FieldPersonID(personID)}
	if marriageID != 0 {
		fields = append(fields, lerrors.Field("marriage_id", marriageID))
	}
	return lerrors.New(lerrors.CodeMarriageConflictActive, "person already has an active marriage", fields...)
}
