package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/leanjournal/internal"
	pkgconfig "github.com/starford/leanjournal/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// oneShot opens the vault, syncs the index, runs fn and prints its result
// as JSON.
func oneShot(fn func(ctx context.Context, app *internal.App) (any, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Sync(); err != nil {
			return fmt.Errorf("sync index: %w", err)
		}
		out, err := fn(ctx, app)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "leanjournal",
		Usage:  "Running journal, daily maps of content and log front matter for a Markdown vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (YAML, or TOML with a .toml extension)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the vault and serve the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:  "entry",
				Usage: "Add a journal entry for now",
				Action: oneShot(func(ctx context.Context, app *internal.App) (any, error) {
					if err := app.AddJournalEntry(ctx); err != nil {
						return nil, err
					}
					return app.Journal(ctx)
				}),
			},
			{
				Name:  "moc",
				Usage: "Create or update today's MOC note",
				Action: oneShot(func(ctx context.Context, app *internal.App) (any, error) {
					return app.BuildDailyMOC(ctx)
				}),
			},
			{
				Name:  "backfill",
				Usage: "Add the log property to notes that lack it",
				Action: oneShot(func(ctx context.Context, app *internal.App) (any, error) {
					return app.BackfillLogs(ctx)
				}),
			},
			{
				Name:  "reset-logs",
				Usage: "Remove the log property from every note",
				Action: oneShot(func(ctx context.Context, app *internal.App) (any, error) {
					return app.ResetLogs(ctx)
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
