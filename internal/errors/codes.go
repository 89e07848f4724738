package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Store errors
	ErrStoreUnavailable     ErrorCode = "store_unavailable"
	ErrReferentialIntegrity ErrorCode = "referential_integrity_violation"

	// Polling errors
	ErrTransientFetch ErrorCode = "transient_fetch_failed"
	ErrDeviceOffline  ErrorCode = "device_offline"

	// Session errors
	ErrNoOpenSession ErrorCode = "no_open_session"

	// Aggregation errors
	ErrInvalidAggregation ErrorCode = "invalid_aggregation_request"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:             "Internal error occurred",
	ErrInvalidArgument:      "Invalid argument provided",
	ErrUnavailable:          "Service unavailable",
	ErrInvalidConfig:        "Invalid configuration",
	ErrMissingConfig:        "Missing configuration",
	ErrReadConfig:           "Failed to read configuration",
	ErrInvalidInterval:      "Invalid interval value",
	ErrInvalidLogLevel:      "Invalid log level",
	ErrInitFailed:           "Initialization failed",
	ErrShutdownFailed:       "Shutdown failed",
	ErrStoreUnavailable:     "Backing store unavailable",
	ErrReferentialIntegrity: "Record references unknown device or configuration",
	ErrTransientFetch:       "Device fetch failed",
	ErrDeviceOffline:        "Device is offline",
	ErrNoOpenSession:        "No open session for device",
	ErrInvalidAggregation:   "Invalid aggregation request",
	ErrOperationFailed:      "Operation failed",
	ErrTimeout:              "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
