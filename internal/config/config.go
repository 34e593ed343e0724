// Package config loads and persists powerflow settings.
//
// Settings live in a TOML file under Dir(). Loading goes through viper so
// that selected keys can be overridden from the environment; saving writes
// the file back atomically with BurntSushi/toml. API keys may come from the
// file or from POCKET_API_KEY / NOTION_API_KEY, the environment winning.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/powerflow-sync/powerflow/internal/fsutil"
	"github.com/powerflow-sync/powerflow/internal/model"
)

// Environment variables consulted for API keys.
const (
	PocketKeyEnv = "POCKET_API_KEY"
	NotionKeyEnv = "NOTION_API_KEY"
)

// DefaultInterval is the daemon interval used when none is configured.
const DefaultInterval = "15m"

// NotionConfig is the destination section.
type NotionConfig struct {
	APIKey       string            `toml:"api_key,omitempty" mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL      string            `toml:"base_url,omitempty" mapstructure:"base_url" yaml:"base_url,omitempty"`
	DatabaseID   string            `toml:"database_id" mapstructure:"database_id" yaml:"database_id"`
	DatabaseName string            `toml:"database_name,omitempty" mapstructure:"database_name" yaml:"database_name,omitempty"`
	PropertyMap  map[string]string `toml:"property_map" mapstructure:"property_map" yaml:"property_map"`
}

// PocketConfig is the source section. LastSync is the watermark in
// RFC 3339 form. BaseURL overrides the public API endpoint.
type PocketConfig struct {
	APIKey   string `toml:"api_key,omitempty" mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL  string `toml:"base_url,omitempty" mapstructure:"base_url" yaml:"base_url,omitempty"`
	LastSync string `toml:"last_sync,omitempty" mapstructure:"last_sync" yaml:"last_sync,omitempty"`
}

// DaemonConfig holds background loop settings.
type DaemonConfig struct {
	Interval      string `toml:"interval" mapstructure:"interval" yaml:"interval"`
	DashboardPort int    `toml:"dashboard_port,omitempty" mapstructure:"dashboard_port" yaml:"dashboard_port,omitempty"`
}

// Config is the persisted configuration.
type Config struct {
	Notion    NotionConfig `toml:"notion" mapstructure:"notion" yaml:"notion"`
	Pocket    PocketConfig `toml:"pocket" mapstructure:"pocket" yaml:"pocket"`
	Daemon    DaemonConfig `toml:"daemon" mapstructure:"daemon" yaml:"daemon"`
	CreatedAt string       `toml:"created_at,omitempty" mapstructure:"created_at" yaml:"created_at,omitempty"`

	path    string
	mapping model.FieldMapping
}

// Default returns an unconfigured Config that saves to path.
func Default(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}
	mapping := model.DefaultFieldMapping()
	return &Config{
		Notion:    NotionConfig{PropertyMap: mapping.Keys()},
		Daemon:    DaemonConfig{Interval: DefaultInterval},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		path:      path,
		mapping:   mapping,
	}
}

// Load reads the configuration at path, or DefaultPath() when path is
// empty. A missing file yields Default(path). The property map is
// validated before Load returns.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("daemon.interval", DefaultInterval)
	v.SetDefault("daemon.dashboard_port", 0)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("POWERFLOW")
	for _, key := range []string{"notion.database_id", "daemon.interval", "daemon.dashboard_port"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	exists := false
	if _, err := os.Stat(path); err == nil {
		exists = true
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := Default(path)
	if exists {
		cfg.CreatedAt = ""
		cfg.Notion.PropertyMap = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if len(cfg.Notion.PropertyMap) == 0 {
		cfg.mapping = model.DefaultFieldMapping()
	} else {
		mapping, err := model.FieldMappingFromKeys(cfg.Notion.PropertyMap)
		if err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		cfg.mapping = mapping
	}
	if err := cfg.mapping.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Notion.PropertyMap = cfg.mapping.Keys()

	return cfg, nil
}

// Path returns the file the configuration saves to.
func (c *Config) Path() string { return c.path }

// Save writes the configuration atomically with owner-only permissions.
func (c *Config) Save() error {
	if c.mapping != nil {
		c.Notion.PropertyMap = c.mapping.Keys()
	}
	return writeFile(c.path, c)
}

func writeFile(path string, c *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DatabaseID returns the destination database id.
func (c *Config) DatabaseID() string { return strings.TrimSpace(c.Notion.DatabaseID) }

// IsConfigured reports whether a destination database has been chosen.
func (c *Config) IsConfigured() bool { return c.DatabaseID() != "" }

// FieldMapping returns the validated property mapping.
func (c *Config) FieldMapping() model.FieldMapping {
	if c.mapping == nil {
		return model.DefaultFieldMapping()
	}
	return c.mapping
}

// SetFieldMapping replaces the property mapping after validating it.
func (c *Config) SetFieldMapping(m model.FieldMapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	c.mapping = m
	c.Notion.PropertyMap = m.Keys()
	return nil
}

// PocketAPIKey returns the Pocket key, preferring the environment.
func (c *Config) PocketAPIKey() string {
	if key := strings.TrimSpace(os.Getenv(PocketKeyEnv)); key != "" {
		return key
	}
	return strings.TrimSpace(c.Pocket.APIKey)
}

// NotionAPIKey returns the Notion key, preferring the environment.
func (c *Config) NotionAPIKey() string {
	if key := strings.TrimSpace(os.Getenv(NotionKeyEnv)); key != "" {
		return key
	}
	return strings.TrimSpace(c.Notion.APIKey)
}

// LastSync returns the watermark, or nil when unset or unparsable.
func (c *Config) LastSync() *time.Time {
	return parseWatermark(c.Pocket.LastSync)
}

func parseWatermark(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := model.ParseTimestamp(s)
	if err != nil {
		return nil
	}
	return &t
}

// SaveWatermark advances the watermark to t and persists it. The watermark
// never moves backwards: a t earlier than the stored value is ignored.
//
// Only the watermark is written; other settings on disk are re-read so a
// concurrent edit of the file is not overwritten.
func (c *Config) SaveWatermark(t time.Time) error {
	t = t.UTC()

	onDisk := &Config{}
	if _, err := toml.DecodeFile(c.path, onDisk); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to re-read config: %w", err)
		}
		onDisk = c.clone()
	}

	for _, current := range []*time.Time{c.LastSync(), parseWatermark(onDisk.Pocket.LastSync)} {
		if current != nil && t.Before(*current) {
			t = *current
		}
	}

	stamp := t.Format(time.RFC3339Nano)
	onDisk.Pocket.LastSync = stamp
	if err := writeFile(c.path, onDisk); err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}
	c.Pocket.LastSync = stamp
	return nil
}

// ResetWatermark clears the watermark so the next pass lists everything.
func (c *Config) ResetWatermark() error {
	c.Pocket.LastSync = ""
	return c.Save()
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Notion.PropertyMap = make(map[string]string, len(c.Notion.PropertyMap))
	for k, v := range c.Notion.PropertyMap {
		cp.Notion.PropertyMap[k] = v
	}
	return &cp
}

// Redacted returns a copy safe to print: API keys are masked.
func (c *Config) Redacted() *Config {
	cp := c.clone()
	cp.Pocket.APIKey = MaskKey(c.PocketAPIKey())
	cp.Notion.APIKey = MaskKey(c.NotionAPIKey())
	return cp
}
