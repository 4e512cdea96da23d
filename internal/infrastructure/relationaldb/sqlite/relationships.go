package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const relationshipColumns = `
	id, person_id, partner_id, type_id, started_on, ended_on, notes, created_at, updated_at`

const marriageColumns = `
	id, husband_id, wife_id, married_on, ended_on, end_reason, notes, created_at, updated_at`

// FindRelationshipByID finds a relationship by ID.
func (r *Repository) FindRelationshipByID(ctx context.Context, id int64) (*entities.PersonRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM person_relationships WHERE id = ?`
	rel, err := scanRelationship(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rel, err
}

// FindActiveRelationship finds the unended relationship of typeID for the
// canonical pair (lo, hi).
func (r *Repository) FindActiveRelationship(ctx context.Context, lo, hi, typeID int64) (*entities.PersonRelationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM person_relationships
		WHERE person_id = ? AND partner_id = ? AND type_id = ? AND ended_on IS NULL
	`
	rel, err := scanRelationship(r.q.QueryRowContext(ctx, query, lo, hi, typeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rel, err
}

// RelationshipsOf lists relationships where any of personIDs is on either side.
func (r *Repository) RelationshipsOf(ctx context.Context, personIDs []int64) ([]*entities.PersonRelationship, error) {
	if len(personIDs) == 0 {
		return []*entities.PersonRelationship{}, nil
	}

	query := `
		SELECT ` + relationshipColumns + `
		FROM person_relationships
		WHERE person_id IN (SELECT value FROM json_each(?1))
			OR partner_id IN (SELECT value FROM json_each(?1))
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, idList(personIDs))
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]*entities.PersonRelationship, 0, 16)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// InsertRelationship stores a canonical relationship and sets its ID.
func (r *Repository) InsertRelationship(ctx context.Context, rel *entities.PersonRelationship) error {
	now := timeNow()
	rel.CreatedAt, rel.UpdatedAt = now, now

	query := `
		INSERT INTO person_relationships (person_id, partner_id, type_id, started_on, ended_on,
			notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.q.ExecContext(ctx, query,
		rel.PersonID, rel.PartnerID, rel.TypeID, dateArg(rel.StartedOn), dateArg(rel.EndedOn),
		rel.Notes, rel.CreatedAt, rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting relationship: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading relationship id: %w", err)
	}
	rel.ID = id
	return nil
}

// EndRelationship sets ended_on on an active relationship.
func (r *Repository) EndRelationship(ctx context.Context, id int64, endedOn time.Time) error {
	query := `
		UPDATE person_relationships SET ended_on = ?, updated_at = ?
		WHERE id = ? AND ended_on IS NULL
	`
	res, err := r.q.ExecContext(ctx, query, endedOn.Format(entities.DateLayout), timeNow(), id)
	if err != nil {
		return fmt.Errorf("ending relationship: %w", classify(err))
	}
	return expectOneRow(res, "relationship")
}

// FindMarriageByID finds a marriage by ID.
func (r *Repository) FindMarriageByID(ctx context.Context, id int64) (*entities.Marriage, error) {
	query := `SELECT ` + marriageColumns + ` FROM marriages WHERE id = ?`
	m, err := scanMarriage(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// FindActiveMarriageFor finds the unended marriage where personID is husband or wife.
func (r *Repository) FindActiveMarriageFor(ctx context.Context, personID int64) (*entities.Marriage, error) {
	query := `
		SELECT ` + marriageColumns + `
		FROM marriages
		WHERE (husband_id = ? OR wife_id = ?) AND ended_on IS NULL
		ORDER BY married_on DESC, id DESC
		LIMIT 1
	`
	m, err := scanMarriage(r.q.QueryRowContext(ctx, query, personID, personID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// MarriagesOf lists marriages where personID is husband or wife, most recent first.
func (r *Repository) MarriagesOf(ctx context.Context, personID int64) ([]*entities.Marriage, error) {
	query := `
		SELECT ` + marriageColumns + `
		FROM marriages
		WHERE husband_id = ? OR wife_id = ?
		ORDER BY married_on DESC, id DESC
	`
	rows, err := r.q.QueryContext(ctx, query, personID, personID)
	if err != nil {
		return nil, fmt.Errorf("querying marriages: %w", err)
	}
	defer rows.Close()

	marriages := make([]*entities.Marriage, 0, 4)
	for rows.Next() {
		m, err := scanMarriage(rows)
		if err != nil {
			return nil, err
		}
		marriages = append(marriages, m)
	}
	return marriages, rows.Err()
}

// InsertMarriage stores a marriage and sets its ID.
func (r *Repository) InsertMarriage(ctx context.Context, m *entities.Marriage) error {
	now := timeNow()
	m.CreatedAt, m.UpdatedAt = now, now

	query := `
		INSERT INTO marriages (husband_id, wife_id, married_on, ended_on, end_reason,
			notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.q.ExecContext(ctx, query,
		m.HusbandID, m.WifeID, m.MarriedOn.Format(entities.DateLayout), dateArg(m.EndedOn), m.EndReasonCode,
		m.Notes, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting marriage: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading marriage id: %w", err)
	}
	m.ID = id
	return nil
}

// EndMarriage sets ended_on, the end reason and notes on an active marriage.
func (r *Repository) EndMarriage(ctx context.Context, id int64, endedOn time.Time, reasonCode, notes string) error {
	query := `
		UPDATE marriages SET ended_on = ?, end_reason = ?, notes = ?, updated_at = ?
		WHERE id = ? AND ended_on IS NULL
	`
	res, err := r.q.ExecContext(ctx, query, endedOn.Format(entities.DateLayout), reasonCode, notes, timeNow(), id)
	if err != nil {
		return fmt.Errorf("ending marriage: %w", classify(err))
	}
	return expectOneRow(res, "marriage")
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("ending %s: expected 1 active row, updated %d", what, n)
	}
	return nil
}

func scanRelationship(s scanner) (*entities.PersonRelationship, error) {
	var (
		rel     entities.PersonRelationship
		started sql.NullString
		ended   sql.NullString
	)
	err := s.Scan(
		&rel.ID, &rel.PersonID, &rel.PartnerID, &rel.TypeID,
		&started, &ended, &rel.Notes, &rel.CreatedAt, &rel.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship: %w", err)
	}
	if rel.StartedOn, err = parseNullDate(started); err != nil {
		return nil, err
	}
	if rel.EndedOn, err = parseNullDate(ended); err != nil {
		return nil, err
	}
	return &rel, nil
}

func scanMarriage(s scanner) (*entities.Marriage, error) {
	var (
		m       entities.Marriage
		married string
		ended   sql.NullString
	)
	err := s.Scan(
		&m.ID, &m.HusbandID, &m.WifeID, &married, &ended,
		&m.EndReasonCode, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning marriage: %w", err)
	}
	if m.MarriedOn, err = entities.ParseDate(married); err != nil {
		return nil, fmt.Errorf("parsing married_on %q: %w", married, err)
	}
	if m.EndedOn, err = parseNullDate(ended); err != nil {
		return nil, err
	}
	return &m, nil
}
