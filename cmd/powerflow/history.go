package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/powerflow-sync/powerflow/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "sync",
	Short:   "Show recently created pages and passes",
	Long: `Show the local sync history.

The history is a record of what this machine created. It is informational:
duplicate detection always asks Notion.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		passes, _ := cmd.Flags().GetBool("passes")

		history := openLedger()
		if history == nil {
			os.Exit(1)
		}
		defer history.Close()

		ctx := cmd.Context()
		if passes {
			list, err := history.RecentPasses(ctx, limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(ui.Header("🕘", "Recent passes"))
			if len(list) == 0 {
				fmt.Printf("   %s\n\n", ui.RenderMuted("no passes recorded yet"))
				return
			}
			for _, p := range list {
				glyph := ui.RenderPass("✓")
				if p.Fatal != "" {
					glyph = ui.RenderFail("✗")
				} else if p.Summary.Failed > 0 {
					glyph = ui.RenderWarn("⚠")
				}
				mode := ""
				if p.DryRun {
					mode = ui.RenderMuted(" (dry run)")
				}
				fmt.Printf("   %s %s  created %d, skipped %d, pending %d, failed %d%s\n",
					glyph, p.StartedAt.Local().Format("Jan 02 15:04"),
					p.Summary.Created, p.Summary.SkippedDuplicate, p.Summary.Pending, p.Summary.Failed, mode)
				if p.Fatal != "" {
					fmt.Printf("      %s\n", ui.RenderMuted(p.Fatal))
				}
			}
			fmt.Println()
			return
		}

		pages, err := history.RecentPages(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(ui.Header("🕘", "Recently synced"))
		if len(pages) == 0 {
			fmt.Printf("   %s\n\n", ui.RenderMuted("nothing synced yet"))
			return
		}
		for _, p := range pages {
			fmt.Printf("   %s  %s\n", ui.RenderMuted(p.SyncedAt.Local().Format("Jan 02 15:04")), p.Title)
			fmt.Printf("   %s  recorded %s, page %s\n",
				ui.RenderMuted("            "), p.RecordingCreatedAt.Local().Format(time.DateOnly), p.PageID)
		}
		fmt.Println()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().Bool("passes", false, "Show passes instead of pages")

	rootCmd.AddCommand(historyCmd)
}
