package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "powerflow",
	Short: "Sync Pocket AI recordings into a Notion database",
	Long: `PowerFlow turns finished Pocket AI recordings into Notion pages.

Each recording becomes one page with its summary, action items as to-dos,
the mind map and the full transcript. Pages are keyed by the recording id,
so running a sync again never creates a second page for the same recording.

Get started:
  powerflow setup          # connect Pocket and Notion
  powerflow sync --dry-run # preview what would be created
  powerflow daemon start   # sync every 15 minutes in the background`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "daemon", Title: "Background Commands:"},
		&cobra.Group{ID: "setup", Title: "Configuration Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.powerflow/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log API activity to stderr")
}
