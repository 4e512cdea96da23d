package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		err := r.q.QueryRow(ctx, query,
			f.LastNames[0], f.LastNames[1], f.LastNames[2], f.LastNames[3],
			f.Description, f.IsActive, f.CreatedAt, f.UpdatedAt,
		).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("inserting family: %w", classify(err))
		}
		return nil
	}

	query := `
		UPDATE families SET
			last_name_1 = $1, last_name_2 = $2, last_name_3 = $3, last_name_4 = $4,
			description = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	_, err := r.q.Exec(ctx, query,
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
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = $1`
	f, err := scanFamily(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// ListFamilies lists families ordered by surname components then id.
func (r *Repository) ListFamilies(ctx context.Context, includeInactive bool) ([]*entities.Family, error) {
	query := `
		SELECT ` + familyColumns + `
		FROM families
		WHERE is_active OR $1
		ORDER BY last_name_1, last_name_2, last_name_3, last_name_4, id
	`
	rows, err := r.q.Query(ctx, query, includeInactive)
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
	query := `UPDATE families SET is_active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.q.Exec(ctx, query, active, timeNow(), id); err != nil {
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		err := r.q.QueryRow(ctx, query,
			m.FamilyID, m.PersonID, m.RoleID, m.IsPrimary,
			dateArg(m.JoinedDate), dateArg(m.LeftDate), m.Notes, m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("inserting family member: %w", classify(err))
		}
		return nil
	}

	query := `
		UPDATE family_members SET
			role_id = $1, is_primary = $2, joined_date = $3, left_date = $4, notes = $5, updated_at = $6
		WHERE id = $7
	`
	_, err := r.q.Exec(ctx, query,
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
		WHERE m.family_id = $1
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
		WHERE m.person_id = ANY($1)
		ORDER BY m.person_id, r.display_order,
			f.last_name_1, f.last_name_2, f.last_name_3, f.last_name_4, m.family_id, m.id
	`
	return r.queryMemberships(ctx, query, personIDs)
}

func (r *Repository) queryMemberships(ctx context.Context, query string, args ...any) ([]*entities.Membership, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]*entities.Membership, 0, 16)
	for rows.Next() {
		var (
			ms     entities.Membership
			joined *time.Time
			left   *time.Time
		)
		if err := rows.Scan(
			&ms.ID, &ms.FamilyID, &ms.PersonID, &ms.RoleID, &ms.IsPrimary,
			&joined, &left, &ms.Notes, &ms.CreatedAt, &ms.UpdatedAt,
			&ms.Role.ID, &ms.Role.Code, &ms.Role.Name, &ms.Role.Description, &ms.Role.IsActive, &ms.Role.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		ms.JoinedDate = utcDate(joined)
		ms.LeftDate = utcDate(left)
		memberships = append(memberships, &ms)
	}
	return memberships, rows.Err()
}

func scanFamily(row pgx.Row) (*entities.Family, error) {
	var f entities.Family
	err := row.Scan(
		&f.ID, &f.LastNames[0], &f.LastNames[1], &f.LastNames[2], &f.LastNames[3],
		&f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning family: %w", err)
	}
	return &f, nil
}
