package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const familyColumns = `
	id, last_name_1, last_name_2, last_name_3, last_name_4,
	description, is_active, created_at, updated_at`

const membershipColumns = `
	m.id, m.family_id, m.person_id, m.role_id, m.is_primary,
	m.joined_date, m.left_date, m.notes, m.created_at, m.updated_at,
	r.id, r.code, r.name, r.description, r.is_active, r.display_order`

// SaveFamily inserts a family when ID is zero and updates it otherwise.
func (r *Repository) SaveFamily(ctx context.Context, f *entities.Family) error {
	now := timeNow()
	f.UpdatedAt = now

	if f.ID == 0 {
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		query := `
			INSERT INTO families (last_name_1, last_name_2, last_name_3, last_name_4,
				description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := r.q.ExecContext(ctx, query,
			f.LastNames[0], f.LastNames[1], f.LastNames[2], f.LastNames[3],
			f.Description, f.IsActive, f.CreatedAt, f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting family: %w", classify(err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading family id: %w", err)
		}
		f.ID = id
		return nil
	}

	query := `
		UPDATE families SET
			last_name_1 = ?, last_name_2 = ?, last_name_3 = ?, last_name_4 = ?,
			description = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.q.ExecContext(ctx, query,
		f.LastNames[0], f.LastNames[1], f.LastNames[2], f.LastNames[3],
		f.Description, f.IsActive, f.UpdatedAt,
		f.ID,
	)
	if err != nil {
		return fmt.Errorf("updating family: %w", classify(err))
	}
	return nil
}

// FindFamilyByID finds a family by ID regardless of its active flag.
func (r *Repository) FindFamilyByID(ctx context.Context, id int64) (*entities.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = ?`
	f, err := scanFamily(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFamilies lists families ordered by surname components then id.
func (r *Repository) ListFamilies(ctx context.Context, includeInactive bool) ([]*entities.Family, error) {
	query := `
		SELECT ` + familyColumns + `
		FROM families
		WHERE is_active = 1 OR ?
		ORDER BY last_name_1, last_name_2, last_name_3, last_name_4, id
	`
	rows, err := r.q.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("querying families: %w", err)
	}
	defer rows.Close()

	families := make([]*entities.Family, 0, 32)
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// SetFamilyActive activates or deactivates a family.
func (r *Repository) SetFamilyActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE families SET is_active = ?, updated_at = ? WHERE id = ?`
	if _, err := r.q.ExecContext(ctx, query, active, timeNow(), id); err != nil {
		return fmt.Errorf("updating family active flag: %w", err)
	}
	return nil
}

// SaveFamilyMember inserts a membership when ID is zero and updates it otherwise.
func (r *Repository) SaveFamilyMember(ctx context.Context, m *entities.FamilyMember) error {
	now := timeNow()
	m.UpdatedAt = now

	if m.ID == 0 {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		query := `
			INSERT INTO family_members (family_id, person_id, role_id, is_primary,
				joined_date, left_date, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := r.q.ExecContext(ctx, query,
			m.FamilyID, m.PersonID, m.RoleID, m.IsPrimary,
			dateArg(m.JoinedDate), dateArg(m.LeftDate), m.Notes, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting family member: %w", classify(err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading family member id: %w", err)
		}
		m.ID = id
		return nil
	}

	query := `
		UPDATE family_members SET
			role_id = ?, is_primary = ?, joined_date = ?, left_date = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.q.ExecContext(ctx, query,
		m.RoleID, m.IsPrimary, dateArg(m.JoinedDate), dateArg(m.LeftDate), m.Notes, m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating family member: %w", classify(err))
	}
	return nil
}

// MembersOf lists the memberships of a family in projection order.
func (r *Repository) MembersOf(ctx context.Context, familyID int64) ([]*entities.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM family_members m
		JOIN family_roles r ON r.id = m.role_id
		LEFT JOIN people p ON p.id = m.person_id
		WHERE m.family_id = ?
		ORDER BY r.display_order, p.first_name, p.last_name, m.person_id, m.id
	`
	return r.queryMemberships(ctx, query, familyID)
}

// MembershipsOf lists the memberships held by any of personIDs.
func (r *Repository) MembershipsOf(ctx context.Context, personIDs []int64) ([]*entities.Membership, error) {
	if len(personIDs) == 0 {
		return []*entities.Membership{}, nil
	}

	query := `
		SELECT ` + membershipColumns + `
		FROM family_members m
		JOIN family_roles r ON r.id = m.role_id
		LEFT JOIN families f ON f.id = m.family_id
		WHERE m.person_id IN (SELECT value FROM json_each(?))
		ORDER BY m.person_id, r.display_order,
			f.last_name_1, f.last_name_2, f.last_name_3, f.last_name_4, m.family_id, m.id
	`
	return r.queryMemberships(ctx, query, idList(personIDs))
}

func (r *Repository) queryMemberships(ctx context.Context, query string, args ...any) ([]*entities.Membership, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]*entities.Membership, 0, 16)
	for rows.Next() {
		var (
			ms     entities.Membership
			joined sql.NullString
			left   sql.NullString
		)
		if err := rows.Scan(
			&ms.ID, &ms.FamilyID, &ms.PersonID, &ms.RoleID, &ms.IsPrimary,
			&joined, &left, &ms.Notes, &ms.CreatedAt, &ms.UpdatedAt,
			&ms.Role.ID, &ms.Role.Code, &ms.Role.Name, &ms.Role.Description, &ms.Role.IsActive, &ms.Role.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		if ms.JoinedDate, err = parseNullDate(joined); err != nil {
			return nil, err
		}
		if ms.LeftDate, err = parseNullDate(left); err != nil {
			return nil, err
		}
		memberships = append(memberships, &ms)
	}
	return memberships, rows.Err()
}

func scanFamily(s scanner) (*entities.Family, error) {
	var f entities.Family
	err := s.Scan(
		&f.ID, &f.LastNames[0], &f.LastNames[1], &f.LastNames[2], &f.LastNames[3],
		&f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning family: %w", err)
	}
	return &f, nil
}
