// Package sqlite provides a SQLite implementation of the RelationalDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ersonp/lineage/internal/domain/entities"
	"github.com/ersonp/lineage/internal/domain/ports"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = func() time.Time { return time.Now().UTC() }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Repository implements ports.RelationalDB using SQLite.
type Repository struct {
	db   *sql.DB
	q    querier
	path string
}

var (
	_ ports.RelationalDB = (*Repository)(nil)
	_ ports.Tx           = (*Repository)(nil)
)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: PRAGMAs stay in effect, :memory: databases are shared
	// and write transactions are serialized.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors from other processes
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		q:    db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// WithTx runs fn inside a transaction bound to a copy of the repository.
func (r *Repository) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txRepo := &Repository{db: r.db, q: sqlTx, path: r.path}
	if err := fn(txRepo); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", classify(err))
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reference_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		code TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		UNIQUE(category, code)
	);

	CREATE TABLE IF NOT EXISTS family_roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		display_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS relationship_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL DEFAULT '',
		second_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		second_last_name TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		identity TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		cellphone TEXT NOT NULL DEFAULT '',
		date_of_birth TEXT,
		is_deceased INTEGER NOT NULL DEFAULT 0,
		date_of_death TEXT,
		refs TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS families (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		last_name_1 TEXT NOT NULL DEFAULT '',
		last_name_2 TEXT NOT NULL DEFAULT '',
		last_name_3 TEXT NOT NULL DEFAULT '',
		last_name_4 TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_families_names
		ON families(last_name_1, last_name_2, last_name_3, last_name_4, id);

	CREATE TABLE IF NOT EXISTS family_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		family_id INTEGER NOT NULL REFERENCES families(id) ON DELETE CASCADE,
		person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		role_id INTEGER NOT NULL REFERENCES family_roles(id) ON DELETE RESTRICT,
		is_primary INTEGER NOT NULL DEFAULT 0,
		joined_date TEXT,
		left_date TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_family_members_family ON family_members(family_id);
	CREATE INDEX IF NOT EXISTS idx_family_members_person ON family_members(person_id);

	CREATE TABLE IF NOT EXISTS person_relationships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		partner_id INTEGER NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		type_id INTEGER NOT NULL REFERENCES relationship_types(id) ON DELETE RESTRICT,
		started_on TEXT,
		ended_on TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (person_id < partner_id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_person_relationships_active
		ON person_relationships(person_id, partner_id, type_id) WHERE ended_on IS NULL;
	CREATE INDEX IF NOT EXISTS idx_person_relationships_partner ON person_relationships(partner_id);

	CREATE TABLE IF NOT EXISTS marriages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		husband_id INTEGER NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		wife_id INTEGER NOT NULL REFERENCES people(id) ON DELETE RESTRICT,
		married_on TEXT NOT NULL,
		ended_on TEXT,
		end_reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (husband_id <> wife_id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_marriages_active_husband
		ON marriages(husband_id) WHERE ended_on IS NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS uq_marriages_active_wife
		ON marriages(wife_id) WHERE ended_on IS NULL;
	`

	_, err := r.q.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// classify maps SQLite constraint failures onto the port sentinels.
func classify(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", ports.ErrUniqueViolation, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", ports.ErrReferenced, err)
	case sqlite3.SQLITE_CONSTRAINT_TRIGGER:
		// ON DELETE RESTRICT surfaces as a trigger constraint.
		if strings.Contains(se.Error(), "FOREIGN KEY") {
			return fmt.Errorf("%w: %w", ports.ErrReferenced, err)
		}
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", ports.ErrWriteConflict, err)
	}
	return err
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(entities.DateLayout)
}

func parseNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := entities.ParseDate(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", ns.String, err)
	}
	return &d, nil
}

// idList encodes ids as a JSON array for json_each, so an IN list binds a
// single parameter however many ids it holds.
func idList(ids []int64) string {
	buf := make([]byte, 0, len(ids)*8+2)
	buf = append(buf, '[')
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, id, 10)
	}
	return string(append(buf, ']'))
}

func encodeRefs(refs map[string]string) (string, error) {
	if len(refs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encoding references: %w", err)
	}
	return string(b), nil
}

func decodeRefs(raw string) (map[string]string, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	refs := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decoding references: %w", err)
	}
	return refs, nil
}
