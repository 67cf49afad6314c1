package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	lookupSheet    = "Lookup"
	ledgerSheet    = "Ledger"
	pagesSheet     = "Pages"
	defaultSheet   = "Sheet1"
	maxMessageCell = 240
)

// LookupXLSX returns a workbook with one row per (identifier, match); identifiers
// without matches get a single row carrying their status.
func LookupXLSX(rep LookupReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := newSheet(f, lookupSheet, []string{"Pallet ID", "Status", "Document", "Page", "Error"}); err != nil {
		return nil, err
	}

	row := 2
	for _, e := range rep.Entries {
		if len(e.Matches) == 0 {
			writeRow(f, lookupSheet, row, e.Identifier, string(e.Status), "", "", truncate(e.Error, maxMessageCell))
			row++
			continue
		}
		for _, m := range e.Matches {
			writeRow(f, lookupSheet, row, e.Identifier, string(e.Status), m.DocumentName, m.PageNumber, "")
			row++
		}
	}

	_ = f.SetColWidth(lookupSheet, "A", "A", 22)
	_ = f.SetColWidth(lookupSheet, "B", "B", 12)
	_ = f.SetColWidth(lookupSheet, "C", "C", 40)
	_ = f.SetColWidth(lookupSheet, "E", "E", 60)

	return finish(f, lookupSheet)
}

// IngestionXLSX returns a workbook with the ledger and the per-page outcomes.
func IngestionXLSX(rep IngestionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := newSheet(f, ledgerSheet, []string{"Pallet ID", "Document", "Page"}); err != nil {
		return nil, err
	}
	for i, e := range rep.Ledger {
		writeRow(f, ledgerSheet, i+2, e.Identifier, rep.DocumentName, e.PageNumber)
	}

	if err := newSheet(f, pagesSheet, []string{"Page", "Status", "Identifiers", "Inserted", "Errors"}); err != nil {
		return nil, err
	}
	for i, p := range rep.Pages {
		errs := ""
		for j, msg := range p.Errors {
			if j > 0 {
				errs += "; "
			}
			errs += msg
		}
		writeRow(f, pagesSheet, i+2, p.PageNumber, string(p.Status), len(p.Identifiers), p.Inserted, truncate(errs, maxMessageCell))
	}

	_ = f.SetColWidth(ledgerSheet, "A", "A", 22)
	_ = f.SetColWidth(ledgerSheet, "B", "B", 40)
	_ = f.SetColWidth(pagesSheet, "B", "B", 20)
	_ = f.SetColWidth(pagesSheet, "E", "E", 60)

	return finish(f, ledgerSheet)
}

func newSheet(f *excelize.File, sheet string, headers []string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func finish(f *excelize.File, active string) ([]byte, error) {
	if idx, _ := f.GetSheetIndex(active); idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:runeBoundary(s, n)]
	}
	return s[:runeBoundary(s, n-1)] + "…"
}

// runeBoundary backs n off to the start of the rune it falls inside.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
