package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/daemon"
	"github.com/powerflow-sync/powerflow/internal/logging"
	"github.com/powerflow-sync/powerflow/internal/notion"
	"github.com/powerflow-sync/powerflow/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show configuration, connections and pending recordings",
	Long: `Show the current PowerFlow setup.

Shows:
  - Config file and destination database
  - Masked API keys
  - Last sync time and daemon state
  - Connection checks and the number of recordings waiting to sync

Use --offline to skip the network checks.`,
	Run: func(cmd *cobra.Command, args []string) {
		offline, _ := cmd.Flags().GetBool("offline")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printConfigStatus(os.Stdout, cfg)
		printDaemonLine(os.Stdout)
		printHistoryLine(os.Stdout)

		if offline {
			fmt.Println()
			return
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		if !printConnectionStatus(ctx, os.Stdout, cfg) {
			os.Exit(1)
		}
	},
}

func printConfigStatus(out io.Writer, cfg *config.Config) {
	fmt.Fprint(out, ui.Header("📊", "PowerFlow Status"))
	fmt.Fprintln(out, ui.Field("Config", cfg.Path()))

	switch {
	case !cfg.IsConfigured():
		fmt.Fprintln(out, ui.Field("Database", ui.RenderWarn("not configured (run 'powerflow setup')")))
	case cfg.Notion.DatabaseName != "":
		fmt.Fprintln(out, ui.Field("Database", fmt.Sprintf("%s (%s)", cfg.Notion.DatabaseName, cfg.DatabaseID())))
	default:
		fmt.Fprintln(out, ui.Field("Database", cfg.DatabaseID()))
	}

	fmt.Fprintln(out, ui.Field("Pocket key", keyLine(cfg.PocketAPIKey())))
	fmt.Fprintln(out, ui.Field("Notion key", keyLine(cfg.NotionAPIKey())))

	if last := cfg.LastSync(); last != nil {
		fmt.Fprintln(out, ui.Field("Last sync", last.Local().Format("Jan 02, 2006 15:04")))
	} else {
		fmt.Fprintln(out, ui.Field("Last sync", "never"))
	}
}

func keyLine(key string) string {
	if key == "" {
		return ui.RenderWarn("missing")
	}
	return config.MaskKey(key)
}

func printDaemonLine(out io.Writer) {
	owner, ok := daemon.Running(config.PIDPath())
	switch {
	case ok && owner.Role == daemon.RoleDaemon:
		fmt.Fprintln(out, ui.Field("Daemon", fmt.Sprintf("%s running (PID %d)", ui.RenderPass("●"), owner.PID)))
	case ok:
		fmt.Fprintln(out, ui.Field("Daemon", ui.RenderMuted("stopped")))
		fmt.Fprintln(out, ui.Field("Lock", lockLine(owner)))
	default:
		fmt.Fprintln(out, ui.Field("Daemon", ui.RenderMuted("stopped")))
	}
}

// lockLine describes a non-daemon holder of the PID file.
func lockLine(owner daemon.Owner) string {
	return ui.RenderWarn(fmt.Sprintf("%s is running (PID %d)", owner.Role.Describe(), owner.PID))
}

func printHistoryLine(out io.Writer) {
	history := openLedger()
	if history == nil {
		return
	}
	defer history.Close()

	count, err := history.PageCount(context.Background())
	if err != nil {
		return
	}
	fmt.Fprintln(out, ui.Field("History", ui.Plural(count, "page")+" created from this machine"))
}

// printConnectionStatus checks both services and the property mapping,
// then counts pending recordings. It returns false if anything failed.
func printConnectionStatus(ctx context.Context, out io.Writer, cfg *config.Config) bool {
	fmt.Fprint(out, ui.Header("🔌", "Connections"))

	svc, err := newServices(cfg, logOutput())
	if err != nil {
		fmt.Fprintf(out, "   %s %v\n\n", ui.RenderFail("✗"), err)
		return false
	}

	ok := true
	if err := svc.pocket.Ping(ctx); err != nil {
		fmt.Fprintln(out, ui.Field("Pocket", ui.RenderFail("✗ ")+err.Error()))
		ok = false
	} else {
		fmt.Fprintln(out, ui.Field("Pocket", ui.RenderPass("✓ connected")))
	}
	if err := svc.notion.Ping(ctx); err != nil {
		fmt.Fprintln(out, ui.Field("Notion", ui.RenderFail("✗ ")+err.Error()))
		ok = false
	} else {
		fmt.Fprintln(out, ui.Field("Notion", ui.RenderPass("✓ connected")))
	}
	if !ok || !cfg.IsConfigured() {
		fmt.Fprintln(out)
		return ok
	}

	schema, err := svc.notion.DatabaseSchema(ctx, cfg.DatabaseID())
	if err != nil {
		fmt.Fprintln(out, ui.Field("Properties", ui.RenderFail("✗ ")+err.Error()))
		fmt.Fprintln(out)
		return false
	}
	if problems := notion.ValidateMapping(schema, cfg.FieldMapping()); len(problems) > 0 {
		fmt.Fprintln(out, ui.Field("Properties", ui.RenderWarn("⚠ mapping problems")))
		for _, p := range problems {
			fmt.Fprintf(out, "      - %s\n", p)
		}
		fmt.Fprintf(out, "      Run 'powerflow setup' to create missing properties.\n")
		ok = false
	} else {
		fmt.Fprintln(out, ui.Field("Properties", ui.RenderPass("✓ mapping valid")))
	}

	engine, err := svc.engine(nil, logging.New(logOutput(), "sync"))
	if err != nil {
		fmt.Fprintf(out, "   %s %v\n\n", ui.RenderFail("✗"), err)
		return false
	}
	pending, err := engine.CountPending(ctx)
	if err != nil {
		fmt.Fprintln(out, ui.Field("Waiting", ui.RenderFail("✗ ")+err.Error()))
		ok = false
	} else {
		fmt.Fprintln(out, ui.Field("Waiting", ui.Plural(pending, "recording")+" ready to sync"))
	}
	fmt.Fprintln(out)
	return ok
}

func init() {
	statusCmd.Flags().Bool("offline", false, "Skip connection checks")

	rootCmd.AddCommand(statusCmd)
}
