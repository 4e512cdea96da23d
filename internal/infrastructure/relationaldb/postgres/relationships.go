package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const relationshipColumns = `
	id, person_id, partner_id, type_id, started_on, ended_on, notes, created_at, updated_at`

const marriageColumns = `
	id, husband_id, wife_id, married_on, ended_on, end_reason, notes, created_at, updated_at`

// FindRelationshipByID finds a relationship by ID.
func (r *Repository) FindRelationshipByID(ctx context.Context, id int64) (*entities.PersonRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM person_relationships WHERE id = $1`
	rel, err := scanRelationship(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
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
		WHERE person_id = $1 AND partner_id = $2 AND type_id = $3 AND ended_on IS NULL
	`
	rel, err := scanRelationship(r.q.QueryRow(ctx, query, lo, hi, typeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return rel, nil
}

// RelationshipsOf lists relationships where any of personIDs is on either side.
func (r *Repository) RelationshipsOf(ctx context.Context, personIDs []int64) ([]*entities.PersonRelationship, error) {
	if len(personIDs) == 0 {
		return []*entities.PersonRelationship{}, nil
	}

	query := `
		SELECT ` + relationshipColumns + `
		FROM person_relationships
		WHERE person_id = ANY($1) OR partner_id = ANY($1)
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, personIDs)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		rel.PersonID, rel.PartnerID, rel.TypeID, dateArg(rel.StartedOn), dateArg(rel.EndedOn),
		rel.Notes, rel.CreatedAt, rel.UpdatedAt,
	).Scan(&rel.ID)
	if err != nil {
		return fmt.Errorf("inserting relationship: %w", classify(err))
	}
	return nil
}

// EndRelationship sets ended_on on an active relationship.
func (r *Repository) EndRelationship(ctx context.Context, id int64, endedOn time.Time) error {
	query := `
		UPDATE person_relationships SET ended_on = $1, updated_at = $2
		WHERE id = $3 AND ended_on IS NULL
	`
	tag, err := r.q.Exec(ctx, query, entities.Date(endedOn), timeNow(), id)
	if err != nil {
		return fmt.Errorf("ending relationship: %w", classify(err))
	}
	return expectOneRow(tag, "relationship")
}

// FindMarriageByID finds a marriage by ID.
func (r *Repository) FindMarriageByID(ctx context.Context, id int64) (*entities.Marriage, error) {
	query := `SELECT ` + marriageColumns + ` FROM marriages WHERE id = $1`
	m, err := scanMarriage(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// FindActiveMarriageFor finds the unended marriage where personID is husband or wife.
func (r *Repository) FindActiveMarriageFor(ctx context.Context, personID int64) (*entities.Marriage, error) {
	query := `
		SELECT ` + marriageColumns + `
		FROM marriages
		WHERE (husband_id = $1 OR wife_id = $1) AND ended_on IS NULL
		ORDER BY married_on DESC, id DESC
		LIMIT 1
	`
	m, err := scanMarriage(r.q.QueryRow(ctx, query, personID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// MarriagesOf lists marriages where personID is husband or wife, most recent first.
func (r *Repository) MarriagesOf(ctx context.Context, personID int64) ([]*entities.Marriage, error) {
	query := `
		SELECT ` + marriageColumns + `
		FROM marriages
		WHERE husband_id = $1 OR wife_id = $1
		ORDER BY married_on DESC, id DESC
	`
	rows, err := r.q.Query(ctx, query, personID)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		m.HusbandID, m.WifeID, entities.Date(m.MarriedOn), dateArg(m.EndedOn), m.EndReasonCode,
		m.Notes, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("inserting marriage: %w", classify(err))
	}
	return nil
}

// EndMarriage sets ended_on, the end reason and notes on an active marriage.
func (r *Repository) EndMarriage(ctx context.Context, id int64, endedOn time.Time, reasonCode, notes string) error {
	query := `
		UPDATE marriages SET ended_on = $1, end_reason = $2, notes = $3, updated_at = $4
		WHERE id = $5 AND ended_on IS NULL
	`
	tag, err := r.q.Exec(ctx, query, entities.Date(endedOn), reasonCode, notes, timeNow(), id)
	if err != nil {
		return fmt.Errorf("ending marriage: %w", classify(err))
	}
	return expectOneRow(tag, "marriage")
}

func expectOneRow(tag pgconn.CommandTag, what string) error {
	if n := tag.RowsAffected(); n != 1 {
		return fmt.Errorf("ending %s: expected 1 active row, updated %d", what, n)
	}
	return nil
}

func scanRelationship(row pgx.Row) (*entities.PersonRelationship, error) {
	var (
		rel     entities.PersonRelationship
		started *time.Time
		ended   *time.Time
	)
	err := row.Scan(
		&rel.ID, &rel.PersonID, &rel.PartnerID, &rel.TypeID,
		&started, &ended, &rel.Notes, &rel.CreatedAt, &rel.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship: %w", err)
	}
	rel.StartedOn = utcDate(started)
	rel.EndedOn = utcDate(ended)
	return &rel, nil
}

func scanMarriage(row pgx.Row) (*entities.Marriage, error) {
	var (
		m     entities.Marriage
		ended *time.Time
	)
	err := row.Scan(
		&m.ID, &m.HusbandID, &m.WifeID, &m.MarriedOn, &ended,
		&m.EndReasonCode, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning marriage: %w", err)
	}
	m.MarriedOn = entities.Date(m.MarriedOn)
	m.EndedOn = utcDate(ended)
	return &m, nil
}
