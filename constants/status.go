package constants

// PageStatus is the outcome of one page of an ingestion run.
type PageStatus string

const (
	PageStatusOK                PageStatus = "OK"                 // identifiers found; inserts attempted
	PageStatusNoIdentifiers     PageStatus = "NO_IDENTIFIERS"     // recognized, nothing matched
	PageStatusRenderFailed      PageStatus = "RENDER_FAILED"      // rasterization failed
	PageStatusRecognitionFailed PageStatus = "RECOGNITION_FAILED" // ocr failed
	PageStatusSkipped           PageStatus = "SKIPPED"            // run aborted before this page
)

// RunStatus is the terminal state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusAborted   RunStatus = "ABORTED"
)

// LookupStatus classifies one identifier of a lookup.
type LookupStatus string

const (
	LookupStatusFound    LookupStatus = "FOUND"
	LookupStatusNotFound LookupStatus = "NOT_FOUND"
	LookupStatusError    LookupStatus = "ERROR"
)
