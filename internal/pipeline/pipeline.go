package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
	"github.com/joseph-ayodele/pallet-tracker/internal/repository"
)

// RenderScale is the magnification pages are rasterized at.
const RenderScale = 2.0

// MaxDocumentNameLength caps the document name recorded on each association.
const MaxDocumentNameLength = 512

// Progress is reported after each page of a run.
type Progress struct {
	RunID     uuid.UUID
	Page      int
	PageCount int
	Status    constants.PageStatus
	Inserted  int
}

// Pipeline ingests scanned documents: render → recognize → extract → persist,
// one page at a time. Failures are isolated to the page (render, recognize) or
// the identifier (insert) they occur in.
type Pipeline struct {
	renderer   extract.PageRenderer
	recognizer extract.Recognizer
	repo       repository.AssociationRepository
	scale      float64
	lang       string
	progress   func(Progress)
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithLanguage sets the recognition language hint. Default is "eng".
func WithLanguage(lang string) Option {
	return func(p *Pipeline) error {
		if lang != "" {
			p.lang = lang
		}
		return nil
	}
}

// WithScale overrides RenderScale.
func WithScale(scale float64) Option {
	return func(p *Pipeline) error {
		if scale <= 0 {
			return common.InvalidInput("render scale must be positive")
		}
		p.scale = scale
		return nil
	}
}

// WithProgress registers a callback invoked after every page, skipped pages included.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) error {
		p.progress = fn
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	renderer extract.PageRenderer,
	recognizer extract.Recognizer,
	repo repository.AssociationRepository,
	opts ...Option,
) (*Pipeline, error) {
	if renderer == nil {
		return nil, ErrRendererRequired
	}
	if recognizer == nil {
		return nil, ErrRecognizerRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	p := &Pipeline{
		renderer:   renderer,
		recognizer: recognizer,
		repo:       repo,
		scale:      RenderScale,
		lang:       "eng",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Ingest processes pages 1..pageCount of doc strictly in order. It returns an
// error only when the run cannot start; once started, the run always completes
// and every page gets an outcome.
//
// If ctx is done before a page starts, no further pages are rendered: the
// remaining pages are marked skipped and the run is aborted. A page that has
// started runs to completion.
//
// Identifiers are not checked against earlier pages or runs, so re-ingesting a
// document appends the same associations again.
func (p *Pipeline) Ingest(ctx context.Context, doc extract.Document, pageCount int) (*Run, error) {
	if pageCount < 1 {
		return nil, common.NewAppError("INVALID_INPUT", ErrNoPages.Error(), errors.Join(common.ErrInvalidInput, ErrNoPages))
	}
	if err := common.NewValidator().Field("document_name", doc.Name, common.Required, common.MaxLength(MaxDocumentNameLength)).Err(); err != nil {
		return nil, err
	}

	run := newRun(doc.Name, pageCount)
	ctx = common.WithRunID(ctx, run.ID)
	logCtx := p.logger.With("run_id", run.ID, "document", doc.Name)
	logCtx.Info("ingestion started", "pages", pageCount, "scale", p.scale, "lang", p.lang)

	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			logCtx.Warn("ingestion aborted", "next_page", page, "error", err)
			run.skipFrom(page, err)
			for skipped := page; skipped <= pageCount; skipped++ {
				p.report(run, skipped, constants.PageStatusSkipped, 0)
			}
			run.finish(constants.RunStatusAborted)
			p.logSummary(logCtx, run)
			return run, nil
		}

		outcome := p.processPage(context.WithoutCancel(ctx), logCtx, run, doc, page)
		run.Pages = append(run.Pages, outcome)
		p.report(run, page, outcome.Status, outcome.Inserted)
	}

	run.finish(constants.RunStatusCompleted)
	p.logSummary(logCtx, run)
	return run, nil
}

func (p *Pipeline) processPage(ctx context.Context, logCtx *slog.Logger, run *Run, doc extract.Document, page int) entity.PageOutcome {
	outcome := entity.PageOutcome{PageNumber: page}
	start := time.Now()

	img, err := p.renderer.RenderPage(ctx, doc, page, p.scale)
	if err != nil {
		logCtx.Error("page render failed", "page", page, "error", err)
		run.fail(common.NewStageError(common.RenderFailure, page, "", err), &outcome)
		outcome.Status = constants.PageStatusRenderFailed
		return outcome
	}

	text, err := p.recognizer.Recognize(ctx, img, p.lang)
	img.Close()
	if err != nil {
		logCtx.Error("page recognition failed", "page", page, "error", err)
		run.fail(common.NewStageError(common.RecognitionFailure, page, "", err), &outcome)
		outcome.Status = constants.PageStatusRecognitionFailed
		return outcome
	}

	ids := extract.ExtractIdentifiers(text)
	outcome.Identifiers = ids
	if len(ids) == 0 {
		logCtx.Info("no identifiers on page", "page", page, "chars", len(text))
		outcome.Status = constants.PageStatusNoIdentifiers
		return outcome
	}

	for _, id := range ids {
		a := entity.Association{Identifier: id, DocumentName: doc.Name, PageNumber: page}
		if err := p.repo.Create(ctx, a); err != nil {
			logCtx.Error("association insert failed", "page", page, "pallet_id", id, "error", err)
			run.fail(common.NewStageError(common.StoreInsertFailure, page, id, err), &outcome)
			continue
		}
		run.Ledger = append(run.Ledger, entity.LedgerEntry{Identifier: id, PageNumber: page})
		outcome.Inserted++
	}

	outcome.Status = constants.PageStatusOK
	logCtx.Info("page processed",
		"page", page,
		"identifiers", len(ids),
		"inserted", outcome.Inserted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outcome
}

func (p *Pipeline) report(run *Run, page int, status constants.PageStatus, inserted int) {
	if p.progress == nil {
		return
	}
	p.progress(Progress{RunID: run.ID, Page: page, PageCount: run.PageCount, Status: status, Inserted: inserted})
}

func (p *Pipeline) logSummary(logCtx *slog.Logger, run *Run) {
	logCtx.Info("ingestion finished",
		"status", run.Status,
		"pages", run.PageCount,
		"inserted", run.Inserted(),
		"failures", len(run.Failures),
		"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
}
