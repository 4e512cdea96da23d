package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/lineage/internal/domain/entities"
)

const (
	familyRoleColumns       = `id, code, name, description, is_active, display_order`
	relationshipTypeColumns = `id, code, label, description, is_active, sort_order`
	referenceItemColumns    = `id, category, code, label, display_order, is_active`
)

// SaveFamilyRole inserts a role, or updates it when the code exists.
func (r *Repository) SaveFamilyRole(ctx context.Context, role *entities.FamilyRole) error {
	query := `
		INSERT INTO family_roles (code, name, description, is_active, display_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			display_order = EXCLUDED.display_order
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		role.Code, role.Name, role.Description, role.IsActive, role.DisplayOrder,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("saving family role: %w", classify(err))
	}
	return nil
}

// FindFamilyRoleByCode finds a role by its code.
func (r *Repository) FindFamilyRoleByCode(ctx context.Context, code string) (*entities.FamilyRole, error) {
	query := `SELECT ` + familyRoleColumns + ` FROM family_roles WHERE code = $1`
	role, err := scanFamilyRole(r.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return role, err
}

// ListFamilyRoles lists all roles ordered by display order.
func (r *Repository) ListFamilyRoles(ctx context.Context) ([]*entities.FamilyRole, error) {
	query := `SELECT ` + familyRoleColumns + ` FROM family_roles ORDER BY display_order, code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying family roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*entities.FamilyRole, 0, 16)
	for rows.Next() {
		role, err := scanFamilyRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// SaveRelationshipType inserts a type, or updates it when the code exists.
func (r *Repository) SaveRelationshipType(ctx context.Context, rt *entities.RelationshipType) error {
	query := `
		INSERT INTO relationship_types (code, label, description, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			label = EXCLUDED.label,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			sort_order = EXCLUDED.sort_order
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		rt.Code, rt.Label, rt.Description, rt.IsActive, rt.Order,
	).Scan(&rt.ID)
	if err != nil {
		return fmt.Errorf("saving relationship type: %w", classify(err))
	}
	return nil
}

// FindRelationshipTypeByCode finds a relationship type by its code.
func (r *Repository) FindRelationshipTypeByCode(ctx context.Context, code string) (*entities.RelationshipType, error) {
	query := `SELECT ` + relationshipTypeColumns + ` FROM relationship_types WHERE code = $1`
	rt, err := scanRelationshipType(r.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rt, err
}

// ListRelationshipTypes lists all relationship types ordered by sort order.
func (r *Repository) ListRelationshipTypes(ctx context.Context) ([]*entities.RelationshipType, error) {
	query := `SELECT ` + relationshipTypeColumns + ` FROM relationship_types ORDER BY sort_order, code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying relationship types: %w", err)
	}
	defer rows.Close()

	types := make([]*entities.RelationshipType, 0, 8)
	for rows.Next() {
		rt, err := scanRelationshipType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

// SaveReferenceItem inserts an item, or updates it when (category, code) exists.
func (r *Repository) SaveReferenceItem(ctx context.Context, item *entities.ReferenceItem) error {
	query := `
		INSERT INTO reference_items (category, code, label, display_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, code) DO UPDATE SET
			label = EXCLUDED.label,
			display_order = EXCLUDED.display_order,
			is_active = EXCLUDED.is_active
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		item.Category, item.Code, item.Label, item.DisplayOrder, item.IsActive,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("saving reference item: %w", classify(err))
	}
	return nil
}

// FindReferenceItem finds a reference item by category and code.
func (r *Repository) FindReferenceItem(ctx context.Context, category, code string) (*entities.ReferenceItem, error) {
	query := `SELECT ` + referenceItemColumns + ` FROM reference_items WHERE category = $1 AND code = $2`
	item, err := scanReferenceItem(r.q.QueryRow(ctx, query, category, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// ListReferenceItems lists every reference item across all categories.
func (r *Repository) ListReferenceItems(ctx context.Context) ([]*entities.ReferenceItem, error) {
	query := `SELECT ` + referenceItemColumns + ` FROM reference_items ORDER BY category, display_order, code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying reference items: %w", err)
	}
	defer rows.Close()

	items := make([]*entities.ReferenceItem, 0, 32)
	for rows.Next() {
		item, err := scanReferenceItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanFamilyRole(row pgx.Row) (*entities.FamilyRole, error) {
	var role entities.FamilyRole
	err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsActive, &role.DisplayOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning family role: %w", err)
	}
	return &role, nil
}

func scanRelationshipType(row pgx.Row) (*entities.RelationshipType, error) {
	var rt entities.RelationshipType
	err := row.Scan(&rt.ID, &rt.Code, &rt.Label, &rt.Description, &rt.IsActive, &rt.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship type: %w", err)
	}
	return &rt, nil
}

func scanReferenceItem(row pgx.Row) (*entities.ReferenceItem, error) {
	var item entities.ReferenceItem
	err := row.Scan(&item.ID, &item.Category, &item.Code, &item.Label, &item.DisplayOrder, &item.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reference item: %w", err)
	}
	return &item, nil
}
