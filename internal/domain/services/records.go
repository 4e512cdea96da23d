package services

import (
	"context"
	"errors"

	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
)

// RecordService guards removals: referenced people cannot be deleted and
// families are deactivated rather than deleted.
type RecordService struct {
	relationalDB ports.RelationalDB
}

// NewRecordService creates a new RecordService.
func NewRecordService(relationalDB ports.RelationalDB) *RecordService {
	return &RecordService{relationalDB: relationalDB}
}

// DeletePerson removes a person who is no member, relationship party or
// spouse anywhere. References are checked in the same transaction as the
// delete; a foreign key rejection from the store reports the same conflict.
func (s *RecordService) DeletePerson(ctx context.Context, id int64) error {
	err := s.relationalDB.WithTx(ctx, func(tx ports.Tx) error {
		p, err := tx.FindPersonByID(ctx, id)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading person", lerrors.FieldPersonID(id))
		}
		if p == nil {
			return lerrors.New(lerrors.CodePersonNotFound, "person not found", lerrors.FieldPersonID(id))
		}

		referenced, err := tx.PersonReferenced(ctx, id)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "checking person references",
				lerrors.FieldPersonID(id))
		}
		if referenced {
			return personReferenced(id)
		}

		return tx.DeletePerson(ctx, id)
	})
	if err == nil || lerrors.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, ports.ErrReferenced) {
		return personReferenced(id)
	}
	return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "deleting person", lerrors.FieldPersonID(id))
}

func personReferenced(id int64) error {
	return lerrors.New(lerrors.CodePersonReferenced,
		"person is still referenced by a membership, relationship or marriage",
		lerrors.FieldPersonID(id))
}

// SetFamilyActive toggles a family's visibility.
func (s *RecordService) SetFamilyActive(ctx context.Context, id int64, active bool) error {
	f, err := s.relationalDB.FindFamilyByID(ctx, id)
	if err != nil {
		return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "loading family", lerrors.FieldFamilyID(id))
	}
	if f == nil {
		return lerrors.New(lerrors.CodeFamilyNotFound, "family not found", lerrors.FieldFamilyID(id))
	}
	if f.IsActive == active {
		return nil
	}

	if err := s.relationalDB.SetFamilyActive(ctx, id, active); err != nil {
		return lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "updating family", lerrors.FieldFamilyID(id))
	}
	return nil
}
