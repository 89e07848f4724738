package store

import "codeberg.org/mutker/axemon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("store_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("store_invalid_db_path")

	// Initialization Errors
	ErrStorageInit      = errors.ErrorCode("store_init_failed")
	ErrSchemaInitFailed = errors.ErrorCode("store_schema_init_failed")
	ErrStorageClose     = errors.ErrorCode("store_close_failed")

	// Access Errors
	ErrStoreUnavailable     = errors.ErrStoreUnavailable
	ErrReferentialIntegrity = errors.ErrReferentialIntegrity
	ErrNoOpenSession        = errors.ErrNoOpenSession
)
