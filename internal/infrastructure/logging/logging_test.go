package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)

	logger.Info("hidden message")
	logger.Warn("family tree truncated", "root_family_id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "family tree truncated")
	assert.Contains(t, out, "root_family_id=7")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "DEBUG", Format: "json"})
	require.NoError(t, err)

	logger.Debug("loaded", "families", 3)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.EqualValues(t, 3, entry["families"])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, config.LogConfig{Level: "loud"})
	assert.True(t, lerrors.IsInvalidInput(err))

	_, err = New(&bytes.Buffer{}, config.LogConfig{Level: "info", Format: "xml"})
	assert.True(t, lerrors.IsInvalidInput(err))
}
