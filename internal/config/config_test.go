package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerflow-sync/powerflow/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IsConfigured())
	assert.Nil(t, cfg.LastSync())
	assert.Equal(t, DefaultInterval, cfg.Daemon.Interval)
	assert.Equal(t, model.DefaultFieldMapping(), cfg.FieldMapping())
	assert.Equal(t, path, cfg.Path())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[notion]
database_id = "db-123"

[notion.property_map]
title = "Title"
pocket_id = "Recording ID"
tags = "Labels"

[pocket]
last_sync = "2025-01-15T10:30:00Z"

[daemon]
interval = "30m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsConfigured())
	assert.Equal(t, "db-123", cfg.DatabaseID())
	assert.Equal(t, "30m", cfg.Daemon.Interval)
	assert.Equal(t, model.FieldMapping{
		model.FieldTitle:    "Title",
		model.FieldStableID: "Recording ID",
		model.FieldTags:     "Labels",
	}, cfg.FieldMapping())

	require.NotNil(t, cfg.LastSync())
	assert.Equal(t, time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC), *cfg.LastSync())
}

func TestLoadRejectsIncompleteMapping(t *testing.T) {
	path := writeConfig(t, `
[notion.property_map]
title = "Title"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "stable_id")
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := writeConfig(t, "this is = = not toml")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[notion]
database_id = "from-file"
api_key = "ntn_file_key_0000000000"
`)
	t.Setenv("POWERFLOW_NOTION_DATABASE_ID", "from-env")
	t.Setenv(NotionKeyEnv, "ntn_env_key_00000000000")
	t.Setenv(PocketKeyEnv, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DatabaseID())
	assert.Equal(t, "ntn_env_key_00000000000", cfg.NotionAPIKey())
	assert.Equal(t, "", cfg.PocketAPIKey())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default(path)
	cfg.Notion.DatabaseID = "db-1"
	cfg.Notion.DatabaseName = "Inbox"
	require.NoError(t, cfg.SetFieldMapping(model.FieldMapping{
		model.FieldTitle:    "Name",
		model.FieldStableID: "Key",
	}))
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-1", loaded.DatabaseID())
	assert.Equal(t, "Inbox", loaded.Notion.DatabaseName)
	assert.Equal(t, cfg.FieldMapping(), loaded.FieldMapping())
}

func TestSetFieldMappingValidates(t *testing.T) {
	cfg := Default(filepath.Join(t.TempDir(), "config.toml"))
	assert.Error(t, cfg.SetFieldMapping(model.FieldMapping{model.FieldTitle: "Name"}))
	assert.Equal(t, model.DefaultFieldMapping(), cfg.FieldMapping())
}

func TestSaveWatermarkIsMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default(path)
	require.NoError(t, cfg.Save())

	t1 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	t2 := t1.Add(time.Hour)

	require.NoError(t, cfg.SaveWatermark(t1))
	assert.Equal(t, t1, *cfg.LastSync())

	require.NoError(t, cfg.SaveWatermark(t0))
	assert.Equal(t, t1, *cfg.LastSync(), "watermark must not move backwards")

	require.NoError(t, cfg.SaveWatermark(t2))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, t2, *loaded.LastSync())
}

func TestSaveWatermarkPreservesConcurrentEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default(path)
	require.NoError(t, cfg.Save())

	other, err := Load(path)
	require.NoError(t, err)
	other.Notion.DatabaseID = "edited-elsewhere"
	require.NoError(t, other.Save())

	require.NoError(t, cfg.SaveWatermark(time.Now()))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "edited-elsewhere", loaded.DatabaseID())
	assert.NotNil(t, loaded.LastSync())
}

func TestResetWatermark(t *testing.T) {
	cfg := Default(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, cfg.SaveWatermark(time.Now()))
	require.NoError(t, cfg.ResetWatermark())
	assert.Nil(t, cfg.LastSync())
}

func TestRedactedMasksKeys(t *testing.T) {
	cfg := Default(filepath.Join(t.TempDir(), "config.toml"))
	t.Setenv(PocketKeyEnv, "")
	t.Setenv(NotionKeyEnv, "")
	cfg.Pocket.APIKey = "pk_abcdefghijklmnopqrstuvwxyz"

	red := cfg.Redacted()
	assert.Equal(t, "pk_a********wxyz", red.Pocket.APIKey)
	assert.Equal(t, "pk_abcdefghijklmnopqrstuvwxyz", cfg.Pocket.APIKey)
}

func TestValidateKeys(t *testing.T) {
	assert.NoError(t, ValidatePocketKey("pk_0123456789abcdefghij"))
	assert.NoError(t, ValidateNotionKey("ntn_0123456789abcdefghij"))
	assert.NoError(t, ValidateNotionKey("secret_0123456789abcdefghij"))

	assert.ErrorContains(t, ValidatePocketKey(""), "empty")
	assert.ErrorContains(t, ValidatePocketKey("pk_short"), "too short")
	assert.ErrorContains(t, ValidatePocketKey("pk_0123456789 abcdefghij"), "whitespace")
	assert.ErrorContains(t, ValidateNotionKey("xyz_0123456789abcdefghij"), "ntn_ or secret_")
}

func TestPathsHonourHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	assert.Equal(t, filepath.Join(dir, "config.toml"), DefaultPath())
	assert.Equal(t, filepath.Join(dir, "daemon_status.json"), StatusPath())
	assert.Equal(t, filepath.Join(dir, "powerflow.pid"), PIDPath())
}
