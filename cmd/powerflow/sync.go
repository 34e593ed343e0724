package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/daemon"
	"github.com/powerflow-sync/powerflow/internal/logging"
	"github.com/powerflow-sync/powerflow/internal/sync"
	"github.com/powerflow-sync/powerflow/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync new recordings to Notion once",
	Long: `Run one sync pass.

A pass lists the recordings created since the last sync, skips the ones
Pocket is still processing, checks Notion for pages that already exist and
creates pages for the rest. The last-sync time only moves forward.

Examples:
  powerflow sync                    # sync everything new
  powerflow sync --dry-run          # show what would be created
  powerflow sync --since yesterday  # re-scan from a given time

The command exits with status 1 if any recording failed.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		since, _ := cmd.Flags().GetString("since")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := runSync(ctx, syncOptions{DryRun: dryRun, Since: since}, os.Stdout)
		cancel()
		os.Exit(code)
	},
}

type syncOptions struct {
	DryRun bool
	Since  string
}

// runSync runs one pass and prints the outcome. It returns the process
// exit code.
func runSync(ctx context.Context, opts syncOptions, out io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !cfg.IsConfigured() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", sync.ErrNotConfigured)
		return 1
	}

	passOpts := sync.Options{DryRun: opts.DryRun}
	if opts.Since != "" {
		since, err := parseSince(opts.Since, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		passOpts.Since = &since
	}

	if !opts.DryRun {
		guard, err := daemon.AcquirePID(config.PIDPath(), daemon.RoleSync)
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if owner, ok := daemon.Running(config.PIDPath()); ok && owner.Role == daemon.RoleDaemon {
				fmt.Fprintf(os.Stderr, "Use 'powerflow daemon stop' first, or --dry-run.\n")
			} else {
				fmt.Fprintf(os.Stderr, "Wait for it to finish, or use --dry-run.\n")
			}
			return 1
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer guard.Release()
	}

	svc, err := newServices(cfg, logOutput())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	history := openLedger()
	if history != nil {
		defer history.Close()
	}

	engine, err := svc.engine(recorderFor(history), logging.New(logOutput(), "sync"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.DryRun {
		fmt.Fprintf(out, "%s Dry run: nothing will be written\n", ui.RenderAccent("🔍"))
	} else {
		fmt.Fprintf(out, "%s Syncing Pocket recordings to Notion...\n", ui.RenderAccent("🔄"))
	}

	// A started pass always runs to completion; an interrupt only ends the
	// process once the pass is done.
	stop := context.AfterFunc(ctx, func() {
		fmt.Fprintf(os.Stderr, "\nInterrupted: finishing the current pass first...\n")
	})
	defer stop()
	passCtx := context.WithoutCancel(ctx)

	result := engine.RunPass(passCtx, passOpts)

	if history != nil {
		if err := history.RecordPass(passCtx, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	printResult(out, result)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

func printResult(out io.Writer, result *sync.Result) {
	if result.Fatal != nil {
		fmt.Fprintf(out, "\n%s Sync failed: %v\n", ui.RenderFail("✗"), result.Fatal)
	} else {
		verb := "Sync complete"
		if result.DryRun {
			verb = "Dry run complete"
		}
		fmt.Fprintf(out, "\n%s %s in %v\n", ui.RenderPass("✓"), verb, result.Duration.Round(time.Millisecond))
	}

	created := "Created"
	if result.DryRun {
		created = "Would create"
	}
	fmt.Fprintln(out, ui.Field(created, fmt.Sprint(result.Created)))
	fmt.Fprintln(out, ui.Field("Skipped", fmt.Sprint(result.SkippedDuplicate)))
	fmt.Fprintln(out, ui.Field("Pending", fmt.Sprint(result.Pending)))
	fmt.Fprintln(out, ui.Field("Failed", fmt.Sprint(result.Failed)))

	if result.Watermark != nil {
		fmt.Fprintln(out, ui.Field("Last sync", result.Watermark.Local().Format("Jan 02, 2006 15:04")))
	}

	if len(result.Errors) > 0 && result.Fatal == nil {
		fmt.Fprintf(out, "\n%s Errors:\n", ui.RenderWarn("⚠"))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "   %s %s\n", ui.RenderFail("•"), e.Error())
		}
	}
	if result.Pending > 0 {
		fmt.Fprintf(out, "\n%s\n", ui.RenderMuted("Pending recordings are still being processed and will sync on a later run."))
	}
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "Show what would be created without writing anything")
	syncCmd.Flags().String("since", "", "Re-scan recordings created after this time (e.g. 2025-03-01, yesterday, \"3 days ago\")")

	rootCmd.AddCommand(syncCmd)
}
