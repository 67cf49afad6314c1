package entity

// Association records that a pallet identifier was found on a page of a document.
type Association struct {
	Identifier   string `json:"pallet_id"`
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
}

// LedgerEntry is one successfully persisted (identifier, page) pair of an ingestion run.
type LedgerEntry struct {
	Identifier string `json:"pallet_id"`
	PageNumber int    `json:"page_number"`
}
