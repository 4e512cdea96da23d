package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/lineage/internal/application/handlers"
	"github.com/ersonp/lineage/internal/domain/ports"
	"github.com/ersonp/lineage/internal/domain/services"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/ersonp/lineage/internal/infrastructure/logging"
	"github.com/ersonp/lineage/internal/infrastructure/metrics"
	"github.com/ersonp/lineage/internal/infrastructure/relationaldb"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	Metrics       *metrics.Collector
	Families      *handlers.FamilyHandler
	People        *handlers.PersonHandler
	Relationships *handlers.RelationshipHandler
	Marriages     *handlers.MarriageHandler
	Imports       *handlers.ImportHandler
	Records       *handlers.RecordHandler
}

// withDeps loads config, opens the store and builds the handlers, then calls
// the provided function. It handles cleanup automatically.
func withDeps(ctx context.Context, flags *globalFlags, fn func(*Deps) error) error {
	basePath, err := flags.basePath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := setupLogging(cfg, flags); err != nil {
		return err
	}

	db, err := relationaldb.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrateDefaultCatalogs(ctx, db); err != nil {
		return err
	}

	return fn(buildDeps(cfg, db))
}

func buildDeps(cfg *config.Config, db ports.RelationalDB) *Deps {
	collector := metrics.NewCollector()

	projector := services.NewProjector(db)
	tree := services.NewTreeService(db, projector, services.TreeLimits{
		MaxFamilies: cfg.Tree.MaxFamilies,
		Timeout:     cfg.Tree.Timeout,
	}, collector)
	relationships := services.NewRelationshipService(db, collector)
	marriages := services.NewMarriageService(db, collector)

	return &Deps{
		Config:        cfg,
		Metrics:       collector,
		Families:      handlers.NewFamilyHandler(projector, tree),
		People:        handlers.NewPersonHandler(projector, relationships, marriages),
		Relationships: handlers.NewRelationshipHandler(relationships),
		Marriages:     handlers.NewMarriageHandler(marriages),
		Imports:       handlers.NewImportHandler(services.NewImportService(db, relationships, marriages)),
		Records:       handlers.NewRecordHandler(services.NewRecordService(db)),
	}
}

func (f *globalFlags) basePath() (string, error) {
	if f.dir != "" {
		return f.dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

func setupLogging(cfg *config.Config, flags *globalFlags) error {
	logCfg := cfg.Log
	if flags.debug {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(os.Stderr, logCfg); err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	return nil
}

// migrateDefaultCatalogs creates the schema and seeds the default catalogs
// when the store has no family roles yet, so a store created without
// `lineage init` still works.
func migrateDefaultCatalogs(ctx context.Context, db ports.RelationalDB) error {
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	roles, err := db.ListFamilyRoles(ctx)
	if err != nil {
		return fmt.Errorf("listing family roles: %w", err)
	}
	if len(roles) > 0 {
		return nil
	}
	if _, err := handlers.SeedDefaults(ctx, db); err != nil {
		return fmt.Errorf("seeding default catalogs: %w", err)
	}
	return nil
}
