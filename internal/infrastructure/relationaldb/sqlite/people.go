package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const personColumns = `
	id, first_name, second_name, last_name, second_last_name, nickname,
	identity, email, cellphone, date_of_birth, is_deceased, date_of_death,
	refs, created_at, updated_at`

// SavePerson inserts a person when ID is zero and updates it otherwise.
func (r *Repository) SavePerson(ctx context.Context, p *entities.Person) error {
	refs, err := encodeRefs(p.References)
	if err != nil {
		return err
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
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := r.q.ExecContext(ctx, query,
			p.FirstName, p.SecondName, p.LastName, p.SecondLastName, p.Nickname,
			p.Identity, p.Email, p.Cellphone, dateArg(p.DateOfBirth), p.IsDeceased, dateArg(p.DateOfDeath),
			refs, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting person: %w", classify(err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading person id: %w", err)
		}
		p.ID = id
		return nil
	}

	query := `
		UPDATE people SET
			first_name = ?, second_name = ?, last_name = ?, second_last_name = ?, nickname = ?,
			identity = ?, email = ?, cellphone = ?, date_of_birth = ?, is_deceased = ?,
			date_of_death = ?, refs = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.q.ExecContext(ctx, query,
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
	query := `SELECT ` + personColumns + ` FROM people WHERE id = ?`
	p, err := scanPerson(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindPeopleByIDs finds multiple people by their IDs in a single query.
func (r *Repository) FindPeopleByIDs(ctx context.Context, ids []int64) ([]*entities.Person, error) {
	if len(ids) == 0 {
		return []*entities.Person{}, nil
	}

	query := `SELECT ` + personColumns + ` FROM people WHERE id IN (SELECT value FROM json_each(?))`

	rows, err := r.q.QueryContext(ctx, query, idList(ids))
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
		SELECT EXISTS (SELECT 1 FROM family_members WHERE person_id = ?1)
			OR EXISTS (SELECT 1 FROM person_relationships WHERE person_id = ?1 OR partner_id = ?1)
			OR EXISTS (SELECT 1 FROM marriages WHERE husband_id = ?1 OR wife_id = ?1)
	`
	var referenced bool
	if err := r.q.QueryRowContext(ctx, query, personID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("checking person references: %w", err)
	}
	return referenced, nil
}

// DeletePerson deletes a person. Foreign keys reject the delete while the
// person is still referenced.
func (r *Repository) DeletePerson(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting person: %w", classify(err))
	}
	return nil
}

func scanPerson(s scanner) (*entities.Person, error) {
	var (
		p     entities.Person
		birth sql.NullString
		death sql.NullString
		refs  string
	)
	err := s.Scan(
		&p.ID, &p.FirstName, &p.SecondName, &p.LastName, &p.SecondLastName, &p.Nickname,
		&p.Identity, &p.Email, &p.Cellphone, &birth, &p.IsDeceased, &death,
		&refs, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning person: %w", err)
	}

	if p.DateOfBirth, err = parseNullDate(birth); err != nil {
		return nil, err
	}
	if p.DateOfDeath, err = parseNullDate(death); err != nil {
		return nil, err
	}
	if p.References, err = decodeRefs(refs); err != nil {
		return nil, err
	}
	return &p, nil
}
