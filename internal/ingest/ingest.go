// Package ingest resolves PDF files on disk into ingestion runs.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
)

// ErrUnsupportedFile is returned for paths without an ingestible extension.
var ErrUnsupportedFile = errors.New("unsupported or missing extension")

// Runner is the part of the pipeline the ingestor drives.
type Runner interface {
	Ingest(ctx context.Context, doc extract.Document, pageCount int) (*pipeline.Run, error)
}

// PageCounter reports how many pages the document at path has.
type PageCounter func(path string) (int, error)

// FileResult is the per-file outcome of a directory ingest.
type FileResult struct {
	Path string
	Run  *pipeline.Run
	Err  string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Aborted   uint32
	Failed    uint32
}

// FileIngestor runs the pipeline over PDF files on the local filesystem.
type FileIngestor struct {
	runner    Runner
	pageCount PageCounter
	logger    *slog.Logger
}

// NewFileIngestor builds an ingestor that counts pages with pageCount and
// hands each document to runner.
func NewFileIngestor(runner Runner, pageCount PageCounter, logger *slog.Logger) *FileIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileIngestor{runner: runner, pageCount: pageCount, logger: logger}
}

// IngestPath ingests the PDF at path under name; an empty name means the
// file's base name.
func (i *FileIngestor) IngestPath(ctx context.Context, path, name string) (*pipeline.Run, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !constants.IsAllowedExt(filepath.Ext(abs)) {
		i.logger.Warn("rejected file", "path", abs, "error", ErrUnsupportedFile)
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("%s: %q", ErrUnsupportedFile, filepath.Ext(abs)),
			errors.Join(common.ErrInvalidInput, ErrUnsupportedFile))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "cannot read document", errors.Join(common.ErrInvalidInput, err))
	}
	if info.IsDir() {
		return nil, common.InvalidInput(fmt.Sprintf("%s is a directory", abs))
	}

	if strings.TrimSpace(name) == "" {
		name = filepath.Base(abs)
	}

	pages, err := i.pageCount(abs)
	if err != nil {
		i.logger.Error("failed to count pages", "path", abs, "error", err)
		return nil, common.NewAppError("INVALID_INPUT", "cannot read PDF page count", errors.Join(common.ErrInvalidInput, err))
	}
	if err := common.NewValidator().Field("page_count", pages, common.Positive).Err(); err != nil {
		i.logger.Warn("rejected empty document", "path", abs, "pages", pages)
		return nil, err
	}

	return i.runner.Ingest(ctx, extract.Document{Name: name, Path: abs}, pages)
}

// IngestDirectory walks root and ingests every PDF found, one at a time.
// Per-file failures are recorded and the walk continues.
func (i *FileIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInput("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		run, err := i.IngestPath(ctx, path, "")
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, Run: run})
		if run.Status == constants.RunStatusAborted {
			stats.Aborted++
		} else {
			stats.Succeeded++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.logger.Info("directory ingested", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "aborted", stats.Aborted, "failed", stats.Failed)
	return results, stats, nil
}
