// Package report turns lookup outcomes and ingestion runs into stable,
// presentable summaries.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
	"github.com/joseph-ayodele/pallet-tracker/internal/lookup"
	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
)

// Match is one document/page reference for a looked-up identifier.
type Match struct {
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
}

// LookupEntry is the presentable outcome for one identifier.
type LookupEntry struct {
	Identifier string                 `json:"pallet_id"`
	Status     constants.LookupStatus `json:"status"`
	Matches    []Match                `json:"matches"`
	Error      string                 `json:"error,omitempty"`
}

// LookupReport lists identifiers in the order they were entered.
type LookupReport struct {
	Entries  []LookupEntry `json:"entries"`
	Found    int           `json:"found"`
	NotFound int           `json:"not_found"`
	Failed   int           `json:"failed"`
}

// BuildLookupReport orders outcomes by the caller's input (trimmed, blank lines
// dropped, duplicates collapsed). An input missing from outcomes is reported as
// an error rather than silently dropped.
func BuildLookupReport(inputs []string, outcomes map[string]entity.LookupOutcome) LookupReport {
	ids := lookup.Distinct(inputs)
	rep := LookupReport{Entries: make([]LookupEntry, 0, len(ids))}

	for _, id := range ids {
		e := LookupEntry{Identifier: id, Matches: make([]Match, 0)}
		o, ok := outcomes[id]
		switch {
		case !ok:
			e.Status = constants.LookupStatusError
			e.Error = "no outcome recorded"
			rep.Failed++
		case o.Err != nil:
			e.Status = constants.LookupStatusError
			e.Error = o.Err.Error()
			rep.Failed++
		case len(o.Matches) == 0:
			e.Status = constants.LookupStatusNotFound
			rep.NotFound++
		default:
			e.Status = constants.LookupStatusFound
			for _, m := range o.Matches {
				e.Matches = append(e.Matches, Match{DocumentName: m.DocumentName, PageNumber: m.PageNumber})
			}
			rep.Found++
		}
		rep.Entries = append(rep.Entries, e)
	}
	return rep
}

// Failure is a flattened failure for display.
type Failure struct {
	Kind       string `json:"kind"`
	Page       int    `json:"page,omitempty"`
	Identifier string `json:"pallet_id,omitempty"`
	Message    string `json:"message"`
}

// IngestionReport is the display form of a pipeline.Run.
type IngestionReport struct {
	RunID        uuid.UUID            `json:"run_id"`
	DocumentName string               `json:"document_name"`
	Status       constants.RunStatus  `json:"status"`
	PageCount    int                  `json:"page_count"`
	Ledger       []entity.LedgerEntry `json:"ledger"`
	Pages        []entity.PageOutcome `json:"pages"`
	Failures     []Failure            `json:"failures"`
	Duration     time.Duration        `json:"duration_ns"`
}

// BuildIngestionReport keeps the ledger in insertion order and pages in page order.
func BuildIngestionReport(run *pipeline.Run) IngestionReport {
	rep := IngestionReport{
		RunID:        run.ID,
		DocumentName: run.DocumentName,
		Status:       run.Status,
		PageCount:    run.PageCount,
		Ledger:       append([]entity.LedgerEntry{}, run.Ledger...),
		Pages:        append([]entity.PageOutcome{}, run.Pages...),
		Failures:     make([]Failure, 0, len(run.Failures)),
		Duration:     run.FinishedAt.Sub(run.StartedAt),
	}
	for _, f := range run.Failures {
		msg := ""
		if f.Cause != nil {
			msg = f.Cause.Error()
		}
		rep.Failures = append(rep.Failures, Failure{
			Kind:       string(f.Kind),
			Page:       f.Page,
			Identifier: f.Identifier,
			Message:    msg,
		})
	}
	return rep
}

// ByIdentifier groups the ledger's pages under each identifier, identifiers in
// first-insertion order.
func (r IngestionReport) ByIdentifier() ([]string, map[string][]int) {
	order := make([]string, 0)
	pages := make(map[string][]int)
	for _, e := range r.Ledger {
		if _, ok := pages[e.Identifier]; !ok {
			order = append(order, e.Identifier)
		}
		pages[e.Identifier] = append(pages[e.Identifier], e.PageNumber)
	}
	return order, pages
}
