// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/config"
)

// StoreOpener opens the Entity Store described by cfg.
type StoreOpener func(ctx context.Context, cfg *config.Config) (ports.RelationalDB, error)

// InitHandler handles project initialization.
type InitHandler struct {
	open StoreOpener
}

// NewInitHandler creates a new init handler.
func NewInitHandler(open StoreOpener) *InitHandler {
	return &InitHandler{
		open: open,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath string
	Backend    string
	Seeded     SeedResult
}

// SeedResult counts the catalog entries written.
type SeedResult struct {
	FamilyRoles       int
	RelationshipTypes int
	References        int
}

// Handle writes the default config, creates the schema and seeds the
// default catalogs.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("lineage already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := h.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	seeded, err := SeedDefaults(ctx, db)
	if err != nil {
		return nil, err
	}

	return &InitResult{
		ConfigPath: config.ConfigFilePath(basePath),
		Backend:    cfg.Store.Backend,
		Seeded:     *seeded,
	}, nil
}

// SeedDefaults creates the schema and upserts the default catalogs. It is
// safe to run more than once.
func SeedDefaults(ctx context.Context, db ports.RelationalDB) (*SeedResult, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "creating schema")
	}

	result := &SeedResult{}
	for _, role := range entities.DefaultFamilyRoles {
		role.IsActive = true
		if err := db.SaveFamilyRole(ctx, &role); err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "seeding family roles")
		}
		result.FamilyRoles++
	}
	for _, rt := range entities.DefaultRelationshipTypes {
		rt.IsActive = true
		if err := db.SaveRelationshipType(ctx, &rt); err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "seeding relationship types")
		}
		result.RelationshipTypes++
	}
	for _, item := range entities.DefaultReferenceItems {
		item.IsActive = true
		if err := db.SaveReferenceItem(ctx, &item); err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "seeding reference items")
		}
		result.References++
	}
	return result, nil
}
