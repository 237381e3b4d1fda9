package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdsite/internal"
	pkgconfig "github.com/starford/mdsite/pkg/config"
)

// loadConfig reads the config file (a missing file keeps the defaults) and
// applies command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("content") {
		cfg.Content.Root = cmd.String("content")
	}
	if cmd.IsSet("out") {
		cfg.Export.OutputDir = cmd.String("out")
	}
	if cmd.IsSet("in-process") {
		cfg.Export.InProcess = cmd.Bool("in-process")
	}
	if cmd.IsSet("watch") {
		cfg.Watch.Enabled = cmd.Bool("watch")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Serve(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func generate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	report, err := internal.Generate(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("generate error: %w", err)
	}

	fmt.Fprintf(os.Stdout, "wrote %d files (%d bytes) to %s in %s\n",
		len(report.Files), report.Bytes, report.OutputDir, report.Duration.Round(time.Millisecond))
	return nil
}

// siteFlags returns the flags shared by serve and generate.
func siteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "HTTP port (overrides app.http.port)",
			Sources: cli.EnvVars("APP_PORT"),
		},
		&cli.StringFlag{
			Name:    "content",
			Usage:   "Content root directory (overrides content.root)",
			Sources: cli.EnvVars("APP_CONTENT_ROOT"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "mdsite",
		Usage: "Serve a directory of Markdown files as a website, or export it as static HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Render pages on demand",
				Action: serve,
				Flags: append(siteFlags(),
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload open pages when content changes",
					},
				),
			},
			{
				Name:   "generate",
				Usage:  "Write a static snapshot of the site",
				Action: generate,
				Flags: append(siteFlags(),
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory, removed and recreated on every run (overrides export.output_dir)",
					},
					&cli.BoolFlag{
						Name:  "in-process",
						Usage: "Render pages without starting the HTTP server",
					},
				),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
