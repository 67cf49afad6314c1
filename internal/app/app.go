// Package app wires configuration into the store, OCR engine, lookup service,
// ingestion pipeline and file ingestor shared by the binaries.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/ingest"
	"github.com/joseph-ayodele/pallet-tracker/internal/lookup"
	"github.com/joseph-ayodele/pallet-tracker/internal/ocr"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
	"github.com/joseph-ayodele/pallet-tracker/internal/repository"
)

type App struct {
	Config   *common.Config
	Store    *repository.Store
	Engine   *ocr.Engine
	Lookup   *lookup.Service
	Pipeline *pipeline.Pipeline
	Ingestor *ingest.FileIngestor
	Logger   *slog.Logger
}

// Option tweaks the pipeline built by New.
type Option func(*options)

type options struct {
	progress func(pipeline.Progress)
	migrate  bool
}

// WithProgress forwards per-page progress from every run.
func WithProgress(fn func(pipeline.Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// WithMigrate prepares the store schema after opening it.
func WithMigrate() Option {
	return func(o *options) { o.migrate = true }
}

// New opens the configured store and builds the services over it. The caller
// owns Close.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, err
	}

	store, err := repository.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		return nil, err
	}
	if o.migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}

	engine := ocr.NewEngine(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		BaseDPI:       cfg.OCR.BaseDPI,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
		WorkDir:       cfg.OCR.ArtifactCacheDir,
	}, logger)

	svc, err := lookup.NewService(store.Associations,
		lookup.WithLogger(logger),
		lookup.WithRateLimit(cfg.Lookup.QPS, cfg.Lookup.Burst),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithLanguage(cfg.OCR.TesseractLang),
		pipeline.WithScale(cfg.OCR.Scale),
	}
	if o.progress != nil {
		pipeOpts = append(pipeOpts, pipeline.WithProgress(o.progress))
	}
	pipe, err := pipeline.NewPipeline(engine, engine, store.Associations, pipeOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Engine:   engine,
		Lookup:   svc,
		Pipeline: pipe,
		Ingestor: ingest.NewFileIngestor(pipe, ocr.PageCount, logger),
		Logger:   logger,
	}, nil
}

func (a *App) Close() {
	a.Store.Close()
}
