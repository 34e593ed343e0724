package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/model"
	"github.com/powerflow-sync/powerflow/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Inspect and edit the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with API keys masked",
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := writeConfig(os.Stdout, cfg, asYAML); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// writeConfig prints cfg with keys masked, as TOML or YAML.
func writeConfig(out io.Writer, cfg *config.Config, asYAML bool) error {
	redacted := cfg.Redacted()
	if asYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(redacted); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	}
	if err := toml.NewEncoder(out).Encode(redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where configuration and state files live",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Println(ui.Field("Config", path))
		fmt.Println(ui.Field("Status", config.StatusPath()))
		fmt.Println(ui.Field("PID file", config.PIDPath()))
		fmt.Println(ui.Field("Log", config.LogPath()))
		fmt.Println(ui.Field("History", config.LedgerPath()))
	},
}

var configSetDatabaseCmd = &cobra.Command{
	Use:   "set-database <database-id>",
	Short: "Set the destination Notion database",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		id := normalizeDatabaseID(args[0])
		if id == "" {
			fmt.Fprintf(os.Stderr, "Error: database id cannot be empty\n")
			os.Exit(1)
		}
		cfg.Notion.DatabaseID = id
		cfg.Notion.DatabaseName = name
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Destination database set to %s\n", ui.RenderPass("✓"), id)
	},
}

// normalizeDatabaseID accepts a bare id or a Notion database URL.
func normalizeDatabaseID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	// Page URLs end in "Title-<32 hex>".
	if i := strings.LastIndex(s, "-"); i >= 0 && len(s)-i-1 == 32 {
		s = s[i+1:]
	}
	return s
}

var configSetPropertyCmd = &cobra.Command{
	Use:   "set-property <field> <property-name>",
	Short: "Map a recording field to a database property",
	Long: `Map a recording field to a property in the destination database.

Fields: title, stable_id, priority, due_date, context, tags, source_url.
An empty property name stops writing that field (title and stable_id are
required).

Examples:
  powerflow config set-property title "Task"
  powerflow config set-property tags "Labels"
  powerflow config set-property priority ""`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := setProperty(cfg, args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %s mapped to %q\n", ui.RenderPass("✓"), args[0], strings.TrimSpace(args[1]))
		fmt.Println(ui.RenderMuted("Run 'powerflow setup' or 'powerflow status' to check the database has it."))
	},
}

func setProperty(cfg *config.Config, key, name string) error {
	field, ok := model.ParseField(key)
	if !ok {
		return fmt.Errorf("unknown field %q", key)
	}
	mapping := make(model.FieldMapping, len(model.Fields))
	for f, prop := range cfg.FieldMapping() {
		mapping[f] = prop
	}
	name = strings.TrimSpace(name)
	if name == "" {
		delete(mapping, field)
	} else {
		mapping[field] = name
	}
	return cfg.SetFieldMapping(mapping)
}

var configResetWatermarkCmd = &cobra.Command{
	Use:   "reset-watermark",
	Short: "Forget the last sync time so the next sync scans everything",
	Long: `Forget the last sync time.

The next sync lists every recording again. Recordings that already have a
page are skipped, so this is safe to run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.ResetWatermark(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Last sync time cleared\n", ui.RenderPass("✓"))
	},
}

func init() {
	configShowCmd.Flags().Bool("yaml", false, "Print as YAML instead of TOML")
	configSetDatabaseCmd.Flags().String("name", "", "Display name for the database")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetDatabaseCmd)
	configCmd.AddCommand(configSetPropertyCmd)
	configCmd.AddCommand(configResetWatermarkCmd)
	rootCmd.AddCommand(configCmd)
}
