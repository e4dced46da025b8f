package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig    ErrorCode = "invalid_configuration"
	ErrReadConfig       ErrorCode = "read_config_failed"
	ErrBindFlags        ErrorCode = "bind_flags_failed"
	ErrInvalidInterval  ErrorCode = "invalid_interval"
	ErrInvalidWindow    ErrorCode = "invalid_window"
	ErrInvalidThreshold ErrorCode = "invalid_threshold"
	ErrInvalidTimezone  ErrorCode = "invalid_timezone"
	ErrLoadRules        ErrorCode = "load_rules_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Monitoring errors
	ErrUnknownRobot   ErrorCode = "unknown_robot"
	ErrSampleFailed   ErrorCode = "sample_failed"
	ErrDiagnoseFailed ErrorCode = "diagnose_failed"
	ErrCheckFailed    ErrorCode = "robot_check_failed"
	ErrForceStopped   ErrorCode = "monitor_force_stopped"

	// Output errors
	ErrWriteReport      ErrorCode = "write_report_failed"
	ErrAppendSystemLog  ErrorCode = "append_system_log_failed"
	ErrSendNotification ErrorCode = "send_notification_failed"
	ErrClearReports     ErrorCode = "clear_reports_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidWindow:    "Invalid window value",
	ErrInvalidThreshold: "Invalid threshold table",
	ErrInvalidTimezone:  "Invalid reference timezone",
	ErrLoadRules:        "Failed to load diagnostic rules",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrUnknownRobot:     "Unknown robot",
	ErrSampleFailed:     "Failed to sample robot",
	ErrDiagnoseFailed:   "Failed to diagnose part",
	ErrCheckFailed:      "Robot check failed",
	ErrForceStopped:     "Monitor is force-stopped",
	ErrWriteReport:      "Failed to write incident report",
	ErrAppendSystemLog:  "Failed to append system log",
	ErrSendNotification: "Failed to send notification",
	ErrClearReports:     "Failed to clear reports directory",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
	ErrInitMetrics:      "Failed to initialize metrics",
	ErrCollectMetrics:   "Failed to collect metrics data",
	ErrCloseMetrics:     "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
