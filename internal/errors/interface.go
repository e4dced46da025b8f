package errors

// ErrorCode identifies a failure class. Codes are stable strings so they
// can be returned to API clients.
type ErrorCode string

// Error is a coded error with an optional cause and payload.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	// Is matches another Error carrying the same code and no cause.
	Is(target error) bool
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
