package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/app"
	"github.com/joseph-ayodele/pallet-tracker/internal/lookup"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
	"github.com/joseph-ayodele/pallet-tracker/internal/report"
)

func lookupCommand(c *cli.Context) error {
	format := c.String("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	ids := c.Args().Slice()
	if path := c.String("file"); path != "" {
		text, err := readInput(path, c.App.Reader)
		if err != nil {
			return fmt.Errorf("read ids: %w", err)
		}
		ids = append(ids, lookup.ParseIdentifierList(text)...)
	}
	if len(ids) == 0 {
		return cli.Exit("no pallet IDs given", 2)
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.Lookup.Lookup(c.Context, ids)
	if err != nil {
		return err
	}
	rep := report.BuildLookupReport(ids, outcomes)

	if path := c.String("xlsx"); path != "" {
		data, err := report.LookupXLSX(rep)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if format == "json" {
		return report.WriteJSON(c.App.Writer, rep)
	}
	return report.WriteLookupText(c.App.Writer, rep)
}

func ingestCommand(c *cli.Context) error {
	format := c.String("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	if c.NArg() != 1 {
		return cli.Exit("usage: pallets ingest <pdf-or-dir>", 2)
	}
	target := c.Args().First()

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	logger := slog.Default()
	a, err := openApp(c, app.WithMigrate(), app.WithProgress(func(p pipeline.Progress) {
		logger.Info("page done", "run_id", p.RunID, "page", p.Page, "of", p.PageCount, "status", p.Status, "inserted", p.Inserted)
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	var reports []report.IngestionReport
	if info.IsDir() {
		results, stats, err := a.Ingestor.IngestDirectory(c.Context, target, c.Bool("skip-hidden"))
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != "" {
				fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", r.Path, r.Err)
				continue
			}
			reports = append(reports, report.BuildIngestionReport(r.Run))
		}
		logger.Info("directory done", "matched", stats.Matched, "succeeded", stats.Succeeded, "failed", stats.Failed)
	} else {
		run, err := a.Ingestor.IngestPath(c.Context, target, c.String("name"))
		if err != nil {
			return err
		}
		reports = append(reports, report.BuildIngestionReport(run))
	}

	if path := c.String("xlsx"); path != "" && len(reports) > 0 {
		if len(reports) > 1 {
			logger.Warn("xlsx export holds the first document only", "documents", len(reports))
		}
		data, err := report.IngestionXLSX(reports[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if err := writeIngestion(c.App.Writer, format, reports); err != nil {
		return err
	}
	for _, r := range reports {
		if r.Status == constants.RunStatusAborted {
			return cli.Exit("ingestion aborted", 1)
		}
	}
	return nil
}

func writeIngestion(w io.Writer, format string, reports []report.IngestionReport) error {
	if format == "json" {
		if len(reports) == 1 {
			return report.WriteJSON(w, reports[0])
		}
		return report.WriteJSON(w, reports)
	}
	var errs []error
	for _, r := range reports {
		errs = append(errs, report.WriteIngestionText(w, r))
	}
	return errors.Join(errs...)
}

func migrateCommand(c *cli.Context) error {
	a, err := openApp(c, app.WithMigrate())
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Fprintf(c.App.Writer, "store %s ready\n", a.Store.Driver())
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}
