package entity

import "github.com/joseph-ayodele/pallet-tracker/constants"

// PageOutcome accounts for a single page of an ingestion run.
type PageOutcome struct {
	PageNumber  int                  `json:"page_number"`
	Status      constants.PageStatus `json:"status"`
	Identifiers []string             `json:"identifiers,omitempty"`
	Inserted    int                  `json:"inserted"`
	Errors      []string             `json:"errors,omitempty"`
}
