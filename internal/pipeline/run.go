package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
)

// Run is the outcome of one ingestion of one document. The Ledger lists, in
// insertion order, every association that reached the store during this run.
type Run struct {
	ID           uuid.UUID            `json:"run_id"`
	DocumentName string               `json:"document_name"`
	PageCount    int                  `json:"page_count"`
	Status       constants.RunStatus  `json:"status"`
	Ledger       []entity.LedgerEntry `json:"ledger"`
	Pages        []entity.PageOutcome `json:"pages"`
	Failures     []*common.StageError `json:"-"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
}

func newRun(documentName string, pageCount int) *Run {
	return &Run{
		ID:           uuid.New(),
		DocumentName: documentName,
		PageCount:    pageCount,
		Status:       constants.RunStatusRunning,
		Ledger:       make([]entity.LedgerEntry, 0),
		Pages:        make([]entity.PageOutcome, 0, pageCount),
		StartedAt:    time.Now().UTC(),
	}
}

func (r *Run) fail(se *common.StageError, outcome *entity.PageOutcome) {
	r.Failures = append(r.Failures, se)
	outcome.Errors = append(outcome.Errors, se.Error())
}

// skipFrom marks pages first..PageCount as skipped.
func (r *Run) skipFrom(first int, reason error) {
	for page := first; page <= r.PageCount; page++ {
		r.Pages = append(r.Pages, entity.PageOutcome{
			PageNumber: page,
			Status:     constants.PageStatusSkipped,
			Errors:     []string{reason.Error()},
		})
	}
}

func (r *Run) finish(status constants.RunStatus) {
	r.Status = status
	r.FinishedAt = time.Now().UTC()
}

// Inserted is the number of associations persisted by the run.
func (r *Run) Inserted() int { return len(r.Ledger) }

// FailuresOf returns the failures of one kind, in the order they happened.
func (r *Run) FailuresOf(kind common.FailureKind) []*common.StageError {
	var out []*common.StageError
	for _, f := range r.Failures {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
