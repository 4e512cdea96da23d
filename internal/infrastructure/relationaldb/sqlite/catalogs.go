package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/lineage/internal/domain/entities"
)

// SaveFamilyRole inserts a role, or updates it when the code exists.
func (r *Repository) SaveFamilyRole(ctx context.Context, role *entities.FamilyRole) error {
	query := `
		INSERT INTO family_roles (code, name, description, is_active, display_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			is_active = excluded.is_active,
			display_order = excluded.display_order
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		role.Code,
		role.Name,
		role.Description,
		role.IsActive,
		role.DisplayOrder,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("saving family role: %w", classify(err))
	}
	return nil
}

// FindFamilyRoleByCode finds a role by its code.
func (r *Repository) FindFamilyRoleByCode(ctx context.Context, code string) (*entities.FamilyRole, error) {
	query := `
		SELECT id, code, name, description, is_active, display_order
		FROM family_roles
		WHERE code = ?
	`
	var role entities.FamilyRole
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&role.ID,
		&role.Code,
		&role.Name,
		&role.Description,
		&role.IsActive,
		&role.DisplayOrder,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning family role: %w", err)
	}
	return &role, nil
}

// ListFamilyRoles lists all roles ordered by display order.
func (r *Repository) ListFamilyRoles(ctx context.Context) ([]*entities.FamilyRole, error) {
	query := `
		SELECT id, code, name, description, is_active, display_order
		FROM family_roles
		ORDER BY display_order, code
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying family roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*entities.FamilyRole, 0, 16)
	for rows.Next() {
		var role entities.FamilyRole
		if err := rows.Scan(
			&role.ID,
			&role.Code,
			&role.Name,
			&role.Description,
			&role.IsActive,
			&role.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("scanning family role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// SaveRelationshipType inserts a type, or updates it when the code exists.
func (r *Repository) SaveRelationshipType(ctx context.Context, rt *entities.RelationshipType) error {
	query := `
		INSERT INTO relationship_types (code, label, description, is_active, sort_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			description = excluded.description,
			is_active = excluded.is_active,
			sort_order = excluded.sort_order
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		rt.Code,
		rt.Label,
		rt.Description,
		rt.IsActive,
		rt.Order,
	).Scan(&rt.ID)
	if err != nil {
		return fmt.Errorf("saving relationship type: %w", classify(err))
	}
	return nil
}

// FindRelationshipTypeByCode finds a relationship type by its code.
func (r *Repository) FindRelationshipTypeByCode(ctx context.Context, code string) (*entities.RelationshipType, error) {
	query := `
		SELECT id, code, label, description, is_active, sort_order
		FROM relationship_types
		WHERE code = ?
	`
	var rt entities.RelationshipType
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&rt.ID,
		&rt.Code,
		&rt.Label,
		&rt.Description,
		&rt.IsActive,
		&rt.Order,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship type: %w", err)
	}
	return &rt, nil
}

// ListRelationshipTypes lists all relationship types ordered by sort order.
func (r *Repository) ListRelationshipTypes(ctx context.Context) ([]*entities.RelationshipType, error) {
	query := `
		SELECT id, code, label, description, is_active, sort_order
		FROM relationship_types
		ORDER BY sort_order, code
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying relationship types: %w", err)
	}
	defer rows.Close()

	types := make([]*entities.RelationshipType, 0, 8)
	for rows.Next() {
		var rt entities.RelationshipType
		if err := rows.Scan(
			&rt.ID,
			&rt.Code,
			&rt.Label,
			&rt.Description,
			&rt.IsActive,
			&rt.Order,
		); err != nil {
			return nil, fmt.Errorf("scanning relationship type: %w", err)
		}
		types = append(types, &rt)
	}
	return types, rows.Err()
}

// SaveReferenceItem inserts an item, or updates it when (category, code) exists.
func (r *Repository) SaveReferenceItem(ctx context.Context, item *entities.ReferenceItem) error {
	query := `
		INSERT INTO reference_items (category, code, label, display_order, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, code) DO UPDATE SET
			label = excluded.label,
			display_order = excluded.display_order,
			is_active = excluded.is_active
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		item.Category,
		item.Code,
		item.Label,
		item.DisplayOrder,
		item.IsActive,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("saving reference item: %w", classify(err))
	}
	return nil
}

// FindReferenceItem finds a reference item by category and code.
func (r *Repository) FindReferenceItem(ctx context.Context, category, code string) (*entities.ReferenceItem, error) {
	query := `
		SELECT id, category, code, label, display_order, is_active
		FROM reference_items
		WHERE category = ? AND code = ?
	`
	var item entities.ReferenceItem
	err := r.q.QueryRowContext(ctx, query, category, code).Scan(
		&item.ID,
		&item.Category,
		&item.Code,
		&item.Label,
		&item.DisplayOrder,
		&item.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reference item: %w", err)
	}
	return &item, nil
}

// ListReferenceItems lists every reference item across all categories.
func (r *Repository) ListReferenceItems(ctx context.Context) ([]*entities.ReferenceItem, error) {
	query := `
		SELECT id, category, code, label, display_order, is_active
		FROM reference_items
		ORDER BY category, display_order, code
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying reference items: %w", err)
	}
	defer rows.Close()

	items := make([]*entities.ReferenceItem, 0, 32)
	for rows.Next() {
		var item entities.ReferenceItem
		if err := rows.Scan(
			&item.ID,
			&item.Category,
			&item.Code,
			&item.Label,
			&item.DisplayOrder,
			&item.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scanning reference item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
