// Package relationaldb selects the Entity Store backend named by the config.
package relationaldb

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ersonp/lineage/internal/domain/ports"
	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/ersonp/lineage/internal/infrastructure/relationaldb/postgres"
	"github.com/ersonp/lineage/internal/infrastructure/relationaldb/sqlite"
)

// Open connects to the configured backend. The schema is not created here;
// callers run EnsureSchema when they need it.
func Open(ctx context.Context, cfg *config.Config) (ports.RelationalDB, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		path := cfg.Store.SQLite.Path
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "creating database directory",
					lerrors.Field("path", path))
			}
		}
		repo, err := sqlite.NewRepository(cfg.Store.SQLite)
		if err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "opening sqlite store",
				lerrors.Field("path", path))
		}
		return repo, nil

	case config.BackendPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeStoreDatabaseFailure, "opening postgres store")
		}
		return repo, nil

	default:
		return nil, lerrors.New(lerrors.CodeStoreBackendUnsupported, "unsupported store backend",
			lerrors.Field("backend", cfg.Store.Backend))
	}
}
