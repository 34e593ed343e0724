package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/model"
)

func TestNormalizeDatabaseID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc123", "abc123"},
		{"  abc123  ", "abc123"},
		{"01234567-89ab-cdef-0123-456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
		{"https://www.notion.so/team/0123456789abcdef0123456789abcdef?v=42", "0123456789abcdef0123456789abcdef"},
		{"https://www.notion.so/Inbox-0123456789abcdef0123456789abcdef", "0123456789abcdef0123456789abcdef"},
		{"https://www.notion.so/Inbox-0123456789abcdef0123456789abcdef#section", "0123456789abcdef0123456789abcdef"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeDatabaseID(tt.in), tt.in)
	}
}

func TestSetProperty(t *testing.T) {
	cfg := config.Default(filepath.Join(t.TempDir(), "config.toml"))

	require.NoError(t, setProperty(cfg, "tags", "Labels"))
	name, ok := cfg.FieldMapping().Property(model.FieldTags)
	assert.True(t, ok)
	assert.Equal(t, "Labels", name)

	require.NoError(t, setProperty(cfg, "pocket_id", "Recording Key"))
	name, _ = cfg.FieldMapping().Property(model.FieldStableID)
	assert.Equal(t, "Recording Key", name)

	require.NoError(t, setProperty(cfg, "priority", ""))
	_, ok = cfg.FieldMapping().Property(model.FieldPriority)
	assert.False(t, ok)

	assert.Error(t, setProperty(cfg, "title", ""), "title is required")
	assert.ErrorContains(t, setProperty(cfg, "colour", "Colour"), "unknown field")

	_, ok = cfg.FieldMapping().Property(model.FieldTitle)
	assert.True(t, ok, "failed update leaves mapping intact")
}

func TestWriteConfigMasksKeys(t *testing.T) {
	t.Setenv(config.PocketKeyEnv, "")
	t.Setenv(config.NotionKeyEnv, "")

	cfg := config.Default(filepath.Join(t.TempDir(), "config.toml"))
	cfg.Pocket.APIKey = "pk_live_abcdefghijklmnop"
	cfg.Notion.APIKey = "ntn_abcdefghijklmnopqrst"
	cfg.Notion.DatabaseID = "db-1"

	var tomlOut bytes.Buffer
	require.NoError(t, writeConfig(&tomlOut, cfg, false))
	assert.Contains(t, tomlOut.String(), `database_id = "db-1"`)
	assert.NotContains(t, tomlOut.String(), "abcdefghijklmnop")
	assert.Contains(t, tomlOut.String(), "pk_l********mnop")

	var yamlOut bytes.Buffer
	require.NoError(t, writeConfig(&yamlOut, cfg, true))
	assert.Contains(t, yamlOut.String(), "database_id: db-1")
	assert.NotContains(t, yamlOut.String(), "abcdefghijklmnop")

	assert.Equal(t, "pk_live_abcdefghijklmnop", cfg.Pocket.APIKey, "original is untouched")
}
