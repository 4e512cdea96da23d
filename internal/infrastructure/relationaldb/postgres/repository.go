// Package postgres provides a PostgreSQL implementation of the RelationalDB
// interface on top of pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	"github.com/ersonp/lineage/internal/infrastructure/config"
)

// SQLSTATE codes mapped onto the port sentinels.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = func() time.Time { return time.Now().UTC() }

// conn is satisfied by both *pgxpool.Pool and pgx.Tx.
type conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

// Repository implements ports.RelationalDB using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	q    conn
}

var (
	_ ports.RelationalDB = (*Repository)(nil)
	_ ports.Tx           = (*Repository)(nil)
)

// NewRepository connects a pool to cfg.URL and pings it.
func NewRepository(ctx context.Context, cfg config.PostgresConfig) (*Repository, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Repository{pool: pool, q: pool}, nil
}

// Close closes the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// WithTx runs fn inside a serializable transaction. Concurrent enforcer
// writes either serialize or fail with ErrWriteConflict.
func (r *Repository) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	pgTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txRepo := &Repository{pool: r.pool, q: pgTx}
	if err := fn(txRepo); err != nil {
		_ = pgTx.Rollback(ctx)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", classify(err))
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reference_items (
		id BIGSERIAL PRIMARY KEY,
		category TEXT NOT NULL,
		code TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE(category, code)
	);

	CREATE TABLE IF NOT EXISTS family_roles (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		display_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS relationship_types (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS people (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		second_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		second_last_name TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		identity TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		cellphone TEXT NOT NULL DEFAULT '',
		date_of_birth DATE,
		is_deceased BOOLEAN NOT NULL DEFAULT FALSE,
		date_of_death DATE,
		refs JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS families (
		id BIGSERIAL PRIMARY KEY,
		last_name_1 TEXT NOT NULL DEFAULT '',
		last_name_2 TEXT NOT NULL DEFAULT '',
		last_name_3 TEXT NOT NULL DEFAULT '',
		last_name_4 TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_families_names
		ON families(last_name_1, last_name_2, last_name_3, last_name_4, id);

	CREATE TABLE IF NOT EXISTS family_members (
		id BIGSERIAL PRIMARY KEY,
		family_id BIGINT NOT NULL REFERENCES families(id) ON DELETE CASCADE,
		person_id BIGINT NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		role_id BIGINT NOT NULL REFERENCES family_roles(id) ON DELETE RESTRICT,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		joined_date DATE,
		left_date DATE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_family_members_family ON family_members(family_id);
	CREATE INDEX IF NOT EXISTS idx_family_members_person ON family_members(person_id);

	CREATE TABLE IF NOT EXISTS person_relationships (
		id BIGSERIAL PRIMARY KEY,
		person_id BIGINT NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		partner_id BIGINT NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		type_id BIGINT NOT NULL REFERENCES relationship_types(id) ON DELETE RESTRICT,
		started_on DATE,
		ended_on DATE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (person_id < partner_id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_person_relationships_active
		ON person_relationships(person_id, partner_id, type_id) WHERE ended_on IS NULL;
	CREATE INDEX IF NOT EXISTS idx_person_relationships_partner ON person_relationships(partner_id);

	CREATE TABLE IF NOT EXISTS marriages (
		id BIGSERIAL PRIMARY KEY,
		husband_id BIGINT NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		wife_id BIGINT NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		married_on DATE NOT NULL,
		ended_on DATE,
		end_reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (husband_id <> wife_id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_marriages_active_husband
		ON marriages(husband_id) WHERE ended_on IS NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS uq_marriages_active_wife
		ON marriages(wife_id) WHERE ended_on IS NULL;
	`

	if _, err := r.q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// classify maps PostgreSQL errors onto the port sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %w", ports.ErrUniqueViolation, err)
	case sqlStateForeignKeyViolation:
		return fmt.Errorf("%w: %w", ports.ErrReferenced, err)
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return fmt.Errorf("%w: %w", ports.ErrWriteConflict, err)
	}
	return err
}

// dateArg strips the clock so DATE columns receive the calendar day.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return entities.Date(*t)
}

// utcDate normalizes a scanned DATE to midnight UTC.
func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entities.Date(*t)
	return &d
}
