package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/ersonp/lineage/internal/errors"
)

const seedDoc = `{
  "people": [
    {"key": "ana", "first_name": "Ana", "last_name": "Garcia", "date_of_birth": "1960-04-02", "references": {"gender": "F"}},
    {"key": "luis", "first_name": "Luis", "last_name": "Garcia", "date_of_birth": "1985-09-12", "references": {"gender": "M"}},
    {"key": "eva", "first_name": "Eva", "last_name": "Ruiz", "date_of_birth": "1987-01-30", "references": {"gender": "F"}}
  ],
  "families": [
    {"key": "garcia", "last_names": ["Garcia"], "members": [
      {"person": "ana", "role": "mother", "primary": true},
      {"person": "luis", "role": "child"}
    ]},
    {"key": "garcia-ruiz", "last_names": ["Garcia", "Ruiz"], "members": [
      {"person": "luis", "role": "husband", "primary": true},
      {"person": "eva", "role": "wife", "primary": true}
    ]}
  ],
  "marriages": [
    {"husband": "luis", "wife": "eva", "married_on": "2012-06-09"}
  ]
}`

// run executes the CLI against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--dir", dir))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_InitImportTree(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Store backend: sqlite")
	assert.FileExists(t, filepath.Join(dir, ".lineage", "config.yaml"))

	_, err = run(t, dir, "init")
	assert.Error(t, err, "second init must refuse to overwrite")

	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedDoc), 0o600))

	out, err = run(t, dir, "import", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported:")
	assert.NotContains(t, out, "Errors")

	out, err = run(t, dir, "tree", "1", "--json")
	require.NoError(t, err)

	var tree struct {
		RootFamilyID int64 `json:"root_family_id"`
		FamilyCount  int   `json:"family_count"`
		Truncated    bool  `json:"truncated"`
		Connections  []struct {
			PersonFullName string `json:"person_full_name"`
		} `json:"connections"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Equal(t, int64(1), tree.RootFamilyID)
	assert.Equal(t, 2, tree.FamilyCount)
	assert.False(t, tree.Truncated)
	require.NotEmpty(t, tree.Connections)
	assert.Equal(t, "Luis Garcia", tree.Connections[0].PersonFullName)

	out, err = run(t, dir, "tree", "1", "--max-families", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "truncated: max_families")

	out, err = run(t, dir, "families")
	require.NoError(t, err)
	assert.Contains(t, out, "Garcia Ruiz")
}

func TestCLI_MarriageConflict(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "init")
	require.NoError(t, err)

	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedDoc), 0o600))
	_, err = run(t, dir, "import", seed)
	require.NoError(t, err)

	// Ana (1) marrying Luis (2) conflicts with Luis's active marriage.
	_, err = run(t, dir, "marry", "2", "1", "2020-01-01")
	require.Error(t, err)
	assert.True(t, lerrors.IsConflict(err))

	_, err = run(t, dir, "marry", "end", "1", "2019-03-01", "--reason", "divorce")
	require.NoError(t, err)

	out, err := run(t, dir, "marry", "2", "1", "2020-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Created marriage: 2")
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseID("family_id", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, lerrors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
