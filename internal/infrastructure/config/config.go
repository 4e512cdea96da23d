// Package config provides configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	lerrors "github.com/ersonp/lineage/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for lineage configuration.
	DefaultConfigDir = ".lineage"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name inside DefaultConfigDir.
	DefaultDatabaseFile = "lineage.db"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Tree   TreeConfig   `yaml:"tree"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and configures the Entity Store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database, or ":memory:".
	// Relative paths are resolved against the project directory.
	Path string `yaml:"path,omitempty"`
}

// PostgresConfig holds configuration for the PostgreSQL relational database.
type PostgresConfig struct {
	URL      string `yaml:"url,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TreeConfig bounds full-tree traversals.
type TreeConfig struct {
	// MaxFamilies is the ceiling on families visited by one traversal.
	MaxFamilies int `yaml:"max_families"`
	// Timeout is the elapsed-time ceiling for one traversal.
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			SQLite: SQLiteConfig{
				Path: filepath.Join(DefaultConfigDir, DefaultDatabaseFile),
			},
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Tree: TreeConfig{
			MaxFamilies: 500,
			Timeout:     10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .lineage directory in the given path.
// A missing config file yields the defaults.
func Load(basePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigFilePath(basePath))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, lerrors.Wrap(err, lerrors.CodeConfigLoadReadFailure, "reading config file")
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, lerrors.Wrap(err, lerrors.CodeConfigParseInvalidFormat, "parsing config file")
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if cfg.Store.SQLite.Path != ":memory:" && !filepath.IsAbs(cfg.Store.SQLite.Path) {
		cfg.Store.SQLite.Path = filepath.Join(basePath, cfg.Store.SQLite.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("LINEAGE_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("LINEAGE_SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("LINEAGE_DATABASE_URL"); v != "" {
		c.Store.Postgres.URL = v
	}
	if v := os.Getenv("LINEAGE_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("LINEAGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LINEAGE_TREE_MAX_FAMILIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeConfigParseInvalidFormat, "parsing LINEAGE_TREE_MAX_FAMILIES")
		}
		c.Tree.MaxFamilies = n
	}
	if v := os.Getenv("LINEAGE_TREE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return lerrors.Wrap(err, lerrors.CodeConfigParseInvalidFormat, "parsing LINEAGE_TREE_TIMEOUT")
		}
		c.Tree.Timeout = d
	}
	return nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return lerrors.New(lerrors.CodeConfigValidateInvalidValue, "store.sqlite.path is required")
		}
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			return lerrors.New(lerrors.CodeConfigValidateInvalidValue, "store.postgres.url is required (or set LINEAGE_DATABASE_URL)")
		}
	default:
		return lerrors.New(lerrors.CodeConfigValidateInvalidValue, "unknown store backend",
			lerrors.Field("backend", c.Store.Backend))
	}

	if c.Tree.MaxFamilies <= 0 {
		return lerrors.New(lerrors.CodeConfigValidateInvalidValue, "tree.max_families must be positive",
			lerrors.Field("max_families", c.Tree.MaxFamilies))
	}
	if c.Tree.Timeout <= 0 {
		return lerrors.New(lerrors.CodeConfigValidateInvalidValue, "tree.timeout must be positive",
			lerrors.Field("timeout", c.Tree.Timeout.String()))
	}
	return nil
}

// ConfigDir returns the path to the .lineage config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a lineage config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
