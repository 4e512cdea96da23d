package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const personColumns = `
	id, first_name, second_name, last_name, second_last_name, nickname,
	identity, email, cellphone, date_of_birth, is_deceased, date_of_death,
	refs, created_at, updated_at`

// SavePerson inserts a person when ID is zero and updates it otherwise.
func (r *Repository) SavePerson(ctx context.Context, p *entities.Person) error {
	refs := p.References
	if refs == nil {
		refs = map[string]string{}
	}

	now := timeNow()
	p.UpdatedAt = now

	if p.ID == 0 {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		query := `
			INSERT INTO people (first_name, second_name, last_name, second_last_name, nickname,
				identity, email, cellphone, date_of_birth, is_deceased, date_of_death,
				refs, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`
		err := r.q.QueryRow(ctx, query,
			p.FirstName, p.SecondName, p.LastName, p.SecondLastName, p.Nickname,
			p.Identity, p.Email, p.Cellphone, dateArg(p.DateOfBirth), p.IsDeceased, dateArg(p.DateOfDeath),
			refs, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("inserting person: %w", classify(err))
		}
		return nil
	}

	query := `
		UPDATE people SET
			first_name = $1, second_name = $2, last_name = $3, second_last_name = $4, nickname = $5,
			identity = $6, email = $7, cellphone = $8, date_of_birth = $9, is_deceased = $10,
			date_of_death = $11, refs = $12, updated_at = $13
		WHERE id = $14
	`
	_, err := r.q.Exec(ctx, query,
		p.FirstName, p.SecondName, p.LastName, p.SecondLastName, p.Nickname,
		p.Identity, p.Email, p.Cellphone, dateArg(p.DateOfBirth), p.IsDeceased,
		dateArg(p.DateOfDeath), refs, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating person: %w", classify(err))
	}
	return nil
}

// FindPersonByID finds a person by ID.
func (r *Repository) FindPersonByID(ctx context.Context, id int64) (*entities.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	p, err := scanPerson(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// FindPeopleByIDs finds multiple people by their IDs in a single query.
func (r *Repository) FindPeopleByIDs(ctx context.Context, ids []int64) ([]*entities.Person, error) {
	if len(ids) == 0 {
		return []*entities.Person{}, nil
	}

	query := `SELECT ` + personColumns + ` FROM people WHERE id = ANY($1)`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying people: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.Person, 0, len(ids))
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// PersonReferenced reports whether any membership, relationship or marriage
// points at personID.
func (r *Repository) PersonReferenced(ctx context.Context, personID int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM family_members WHERE person_id = $1)
			OR EXISTS (SELECT 1 FROM person_relationships WHERE person_id = $1 OR partner_id = $1)
			OR EXISTS (SELECT 1 FROM marriages WHERE husband_id = $1 OR wife_id = $1)
	`
	var referenced bool
	if err := r.q.QueryRow(ctx, query, personID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("checking person references: %w", err)
	}
	return referenced, nil
}

// DeletePerson deletes a person. Foreign keys reject the delete while the
// person is still referenced.
func (r *Repository) DeletePerson(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM people WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting person: %w", classify(err))
	}
	return nil
}

func scanPerson(row pgx.Row) (*entities.Person, error) {
	var (
		p     entities.Person
		birth *time.Time
		death *time.Time
		refs  map[string]string
	)
	err := row.Scan(
		&p.ID, &p.FirstName, &p.SecondName, &p.LastName, &p.SecondLastName, &p.Nickname,
		&p.Identity, &p.Email, &p.Cellphone, &birth, &p.IsDeceased, &death,
		&refs, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning person: %w", err)
	}

	p.DateOfBirth = utcDate(birth)
	p.DateOfDeath = utcDate(death)
	if len(refs) > 0 {
		p.References = refs
	}
	return &p, nil
}
