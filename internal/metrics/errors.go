package metrics

import "codeberg.org/mutker/robotwatch/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("ledger_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("ledger_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("ledger_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("ledger_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("ledger_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitMetrics
	ErrStorageClose = errors.ErrCloseMetrics
	ErrQueryFailed  = errors.ErrorCode("ledger_query_failed")

	// Collection Errors
	ErrRecordFailed = errors.ErrCollectMetrics
	ErrInvalidEntry = errors.ErrorCode("ledger_invalid_entry")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
