package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/model"
	"github.com/powerflow-sync/powerflow/internal/notion"
	"github.com/powerflow-sync/powerflow/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	GroupID: "setup",
	Short:   "Configure API keys and the destination database",
	Long: `Walk through first-time configuration.

Setup asks for the Pocket API key and the Notion integration token, checks
both, lets you pick one of the databases shared with the integration and
creates any properties the database is missing.

Every prompt can be answered with a flag instead, which allows
non-interactive use:
  powerflow setup --pocket-key pk_... --notion-key ntn_... --database <id>`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := setupOptions{}
		opts.PocketKey, _ = cmd.Flags().GetString("pocket-key")
		opts.NotionKey, _ = cmd.Flags().GetString("notion-key")
		opts.DatabaseID, _ = cmd.Flags().GetString("database")
		opts.Interactive = ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		if err := runSetup(ctx, opts); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(os.Stderr, "Setup cancelled.")
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

type setupOptions struct {
	PocketKey   string
	NotionKey   string
	DatabaseID  string
	Interactive bool
}

func runSetup(ctx context.Context, opts setupOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Print(ui.Header("⚙️", "PowerFlow Setup"))

	pocketKey := firstNonEmpty(opts.PocketKey, cfg.PocketAPIKey())
	notionKey := firstNonEmpty(opts.NotionKey, cfg.NotionAPIKey())
	if opts.Interactive {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Pocket API key").
				Description("From the Pocket app: Settings → Developer").
				EchoMode(huh.EchoModePassword).
				Value(&pocketKey).
				Validate(config.ValidatePocketKey),
			huh.NewInput().
				Title("Notion integration token").
				Description("From notion.so/my-integrations").
				EchoMode(huh.EchoModePassword).
				Value(&notionKey).
				Validate(config.ValidateNotionKey),
		))
		if err := form.RunWithContext(ctx); err != nil {
			return err
		}
	} else {
		if err := config.ValidatePocketKey(pocketKey); err != nil {
			return err
		}
		if err := config.ValidateNotionKey(notionKey); err != nil {
			return err
		}
	}
	cfg.Pocket.APIKey = pocketKey
	cfg.Notion.APIKey = notionKey

	svc, err := newServices(cfg, logOutput())
	if err != nil {
		return err
	}
	if err := svc.pocket.Ping(ctx); err != nil {
		return fmt.Errorf("pocket rejected the key: %w", err)
	}
	fmt.Println(ui.Field("Pocket", ui.RenderPass("✓ connected")))
	if err := svc.notion.Ping(ctx); err != nil {
		return fmt.Errorf("notion rejected the token: %w", err)
	}
	fmt.Println(ui.Field("Notion", ui.RenderPass("✓ connected")))

	db, err := chooseDatabase(ctx, svc.notion, firstNonEmpty(opts.DatabaseID, cfg.DatabaseID()), opts.Interactive)
	if err != nil {
		return err
	}
	cfg.Notion.DatabaseID = db.ID
	cfg.Notion.DatabaseName = db.Title
	fmt.Println(ui.Field("Database", fmt.Sprintf("%s %s", db.Emoji, db.Title)))

	created, err := svc.notion.EnsureProperties(ctx, db.ID, notion.RequiredProperties(cfg.FieldMapping()))
	if err != nil {
		return fmt.Errorf("failed to prepare database: %w", err)
	}
	for _, name := range created {
		fmt.Printf("   %s created property %q\n", ui.RenderAccent("+"), name)
	}
	if prop, ok := cfg.FieldMapping().Property(model.FieldTags); ok {
		added, err := seedTagOptions(ctx, svc, db.ID, prop)
		if err != nil {
			fmt.Printf("   %s could not copy Pocket tags: %v\n", ui.RenderWarn("⚠"), err)
		} else if len(added) > 0 {
			fmt.Printf("   %s added %s to %q\n", ui.RenderAccent("+"), ui.Plural(len(added), "tag option"), prop)
		}
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("\n%s Saved %s\n", ui.RenderPass("✓"), cfg.Path())
	fmt.Println(ui.RenderMuted("Next: 'powerflow sync --dry-run' to preview, then 'powerflow daemon start'."))
	return nil
}

// seedTagOptions copies the account's Pocket tags into the options of the
// tags property so pages pick from a consistent list.
func seedTagOptions(ctx context.Context, svc *services, databaseID, property string) ([]string, error) {
	tags, err := svc.pocket.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return svc.notion.AddSelectOptions(ctx, databaseID, property, blocks.TagOptions(tags))
}

// chooseDatabase resolves the destination: a preset id wins, otherwise the
// user picks one of the shared databases.
func chooseDatabase(ctx context.Context, client *notion.Client, preset string, interactive bool) (notion.Database, error) {
	databases, err := client.SearchDatabases(ctx)
	if err != nil {
		return notion.Database{}, err
	}

	if preset != "" {
		preset = normalizeDatabaseID(preset)
		for _, db := range databases {
			if sameID(db.ID, preset) {
				return db, nil
			}
		}
		if _, err := client.DatabaseSchema(ctx, preset); err != nil {
			return notion.Database{}, fmt.Errorf("database %s is not shared with the integration: %w", preset, err)
		}
		return notion.Database{ID: preset, Title: "Untitled", Emoji: "📄"}, nil
	}

	if len(databases) == 0 {
		return notion.Database{}, fmt.Errorf("no databases are shared with the integration; share one in Notion via Connections")
	}
	if !interactive {
		return notion.Database{}, fmt.Errorf("--database is required when not running in a terminal")
	}

	options := make([]huh.Option[string], len(databases))
	for i, db := range databases {
		options[i] = huh.NewOption(fmt.Sprintf("%s %s", db.Emoji, db.Title), db.ID)
	}
	var picked string
	sel := huh.NewSelect[string]().
		Title("Destination database").
		Options(options...).
		Value(&picked)
	if err := huh.NewForm(huh.NewGroup(sel)).RunWithContext(ctx); err != nil {
		return notion.Database{}, err
	}
	for _, db := range databases {
		if db.ID == picked {
			return db, nil
		}
	}
	return notion.Database{}, fmt.Errorf("no database selected")
}

// sameID compares Notion ids with or without dashes.
func sameID(a, b string) bool {
	return strings.ReplaceAll(a, "-", "") == strings.ReplaceAll(b, "-", "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	setupCmd.Flags().String("pocket-key", "", "Pocket API key")
	setupCmd.Flags().String("notion-key", "", "Notion integration token")
	setupCmd.Flags().String("database", "", "Destination database id or URL")

	rootCmd.AddCommand(setupCmd)
}
