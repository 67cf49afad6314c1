package constants

// AssociationsTable is the SQL table holding (pallet_id, document_name, page_number) rows.
const AssociationsTable = "pallet_associations"

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
)
