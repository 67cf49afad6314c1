package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/pallet-tracker/internal/app"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
)

func newApp() *cli.App {
	formatFlag := &cli.StringFlag{
		Name:  "format",
		Usage: "Output format (text, json)",
		Value: "text",
	}
	xlsxFlag := &cli.StringFlag{
		Name:  "xlsx",
		Usage: "Also write the report as an XLSX workbook to this path",
	}

	return &cli.App{
		Name:  "pallets",
		Usage: "Find which documents and pages a pallet ID appears on",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "store-driver",
				Usage: "Store backend (sqlite, postgres, badger); overrides STORE_DRIVER",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Store DSN or path; overrides DB_URL",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "Look up pallet IDs given as arguments, one per line in --file, or on stdin",
				ArgsUsage: "[pallet-id...]",
				Action:    lookupCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read newline-delimited IDs from this file (- for stdin)",
					},
					formatFlag,
					xlsxFlag,
				},
			},
			{
				Name:      "ingest",
				Usage:     "OCR a PDF (or every PDF under a directory) and record the pallet IDs found",
				ArgsUsage: "<pdf-or-dir>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Document name to record (defaults to the file name)",
					},
					&cli.BoolFlag{
						Name:  "skip-hidden",
						Usage: "Skip hidden files and directories when ingesting a directory",
						Value: true,
					},
					formatFlag,
					xlsxFlag,
				},
			},
			{
				Name:   "migrate",
				Usage:  "Create the association table and index if missing",
				Action: migrateCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
	switch levelStr {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: common.ParseLogLevel(levelStr),
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) *common.Config {
	cfg := common.LoadConfig()
	if v := c.String("store-driver"); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := c.String("db"); v != "" {
		cfg.Database.DSN = v
	}
	return cfg
}

func openApp(c *cli.Context, opts ...app.Option) (*app.App, error) {
	return app.New(c.Context, loadConfig(c), slog.Default(), opts...)
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be text or json", format)
	}
}
