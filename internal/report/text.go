package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/pallet-tracker/constants"
)

// WriteLookupText renders one block per identifier.
func WriteLookupText(w io.Writer, rep LookupReport) error {
	var b strings.Builder
	for _, e := range rep.Entries {
		fmt.Fprintf(&b, "%s\n", e.Identifier)
		switch e.Status {
		case constants.LookupStatusError:
			fmt.Fprintf(&b, "  error: %s\n", e.Error)
		case constants.LookupStatusNotFound:
			b.WriteString("  No match found\n")
		default:
			for _, m := range e.Matches {
				fmt.Fprintf(&b, "  %s - Page %d\n", m.DocumentName, m.PageNumber)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d found, %d not found, %d failed\n", rep.Found, rep.NotFound, rep.Failed)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteIngestionText renders the ledger followed by per-page outcomes.
func WriteIngestionText(w io.Writer, rep IngestionReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%d pages, %d associations saved)\n",
		rep.DocumentName, rep.Status, rep.PageCount, len(rep.Ledger))

	for _, e := range rep.Ledger {
		fmt.Fprintf(&b, "  %s - Page %d\n", e.Identifier, e.PageNumber)
	}
	for _, p := range rep.Pages {
		if p.Status == constants.PageStatusOK && len(p.Errors) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  page %d: %s\n", p.PageNumber, p.Status)
		for _, msg := range p.Errors {
			fmt.Fprintf(&b, "    %s\n", msg)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
