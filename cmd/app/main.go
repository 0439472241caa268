// Command app runs the Moonshine MCP server.
//
// The SQLite driver needs FTS5: go build -tags sqlite_fts5 ./cmd/app
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/moonshine/internal"
	pkgconfig "github.com/starford/moonshine/pkg/config"
)

var version = "dev"

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded {
		if err := cfg.ApplyEnv(); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	if cmd.IsSet("db") {
		cfg.SQLite.Path = cmd.String("db")
	}
	if cmd.Bool("read-only") {
		cfg.SQLite.ReadOnly = true
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "moonshine",
		Usage:   "Knowledge store for AI agents over MCP: mashes, typed edges, keyword and semantic search",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the SQLite database (overrides sqlite.path)",
			},
			&cli.BoolFlag{
				Name:  "read-only",
				Usage: "Open the database read-only and refuse all mutations",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
