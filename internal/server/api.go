package server

import (
	"github.com/joseph-ayodele/pallet-tracker/internal/report"
)

const ServiceName = "pallets.v1.PalletService"

const (
	lookupMethod = "/" + ServiceName + "/Lookup"
	ingestMethod = "/" + ServiceName + "/Ingest"
)

type LookupRequest struct {
	PalletIDs []string `json:"pallet_ids"`
}

type LookupResponse struct {
	Report report.LookupReport `json:"report"`
}

// IngestRequest names a PDF readable by the server. With Async set the
// document is queued and only the job ID is returned.
type IngestRequest struct {
	Path         string `json:"path"`
	DocumentName string `json:"document_name,omitempty"`
	Async        bool   `json:"async,omitempty"`
}

type IngestResponse struct {
	JobID  string                  `json:"job_id,omitempty"`
	Report *report.IngestionReport `json:"report,omitempty"`
}
