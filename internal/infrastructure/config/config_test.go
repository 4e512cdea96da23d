package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(".lineage", "lineage.db"), cfg.Store.SQLite.Path)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 500, cfg.Tree.MaxFamilies)
	assert.Equal(t, 10*time.Second, cfg.Tree.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestConfigDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/x", ".lineage"), ConfigDir("/tmp/x"))
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/x", ".lineage", "config.yaml"), ConfigFilePath("/tmp/x"))
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ".lineage", "lineage.db"), cfg.Store.SQLite.Path)
		assert.False(t, Exists(dir))
	})

	t.Run("default yaml round trips", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteDefault(dir))
		assert.True(t, Exists(dir))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, int32(10), cfg.Store.Postgres.MaxConns)

		require.Error(t, WriteDefault(dir), "second write must not clobber")
	})

	t.Run("file values override defaults", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "tree:\n  max_families: 25\n  timeout: 2s\nstore:\n  backend: sqlite\n  sqlite:\n    path: \":memory:\"\n")

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Tree.MaxFamilies)
		assert.Equal(t, 2*time.Second, cfg.Tree.Timeout)
		assert.Equal(t, ":memory:", cfg.Store.SQLite.Path)
		assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "tree: [unclosed\n")

		_, err := Load(dir)
		require.Error(t, err)
		assert.True(t, lerrors.HasCode(err, lerrors.CodeConfigParseInvalidFormat))
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINEAGE_STORE_BACKEND", "postgres")
	t.Setenv("LINEAGE_DATABASE_URL", "postgres://localhost/lineage")
	t.Setenv("LINEAGE_LISTEN_ADDR", ":9090")
	t.Setenv("LINEAGE_TREE_MAX_FAMILIES", "42")
	t.Setenv("LINEAGE_TREE_TIMEOUT", "1500ms")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/lineage", cfg.Store.Postgres.URL)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 42, cfg.Tree.MaxFamilies)
	assert.Equal(t, 1500*time.Millisecond, cfg.Tree.Timeout)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("LINEAGE_TREE_MAX_FAMILIES", "lots")
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, lerrors.IsInvalidInput(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "mongo" }},
		{name: "empty sqlite path", mutate: func(c *Config) { c.Store.SQLite.Path = "" }},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }},
		{name: "zero max families", mutate: func(c *Config) { c.Tree.MaxFamilies = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Tree.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, lerrors.HasCode(err, lerrors.CodeConfigValidateInvalidValue))
		})
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Tree.MaxFamilies = 7
	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Tree.MaxFamilies)
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte(content), 0644))
}
