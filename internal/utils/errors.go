package utils

import (
	"fmt"

	"github.com/dl-alexandre/rcache/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Audit found discrepancies (only with --fail-on-discrepancy)
	ExitDiscrepancies = 1
	// Backend errors (30-39)
	ExitBackendError = 30
	ExitTimeout      = 31
	ExitAuthRequired = 32
	// Precondition errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitInvalidConfig   = 42
	ExitPoolNotFound    = 44
	// Internal
	ExitInternalError = 70
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeInvalidPath     = "INVALID_PATH"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodePoolNotFound    = "POOL_NOT_FOUND"
	ErrCodeBackendError    = "BACKEND_ERROR"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeAuthRequired    = "AUTH_REQUIRED"
	ErrCodeDiscrepancies   = "DISCREPANCIES_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeUnknown         = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// exitCodes maps each error code onto the process exit status. Codes not
// listed exit with ExitUnknown.
var exitCodes = map[string]int{
	ErrCodeInvalidArgument: ExitInvalidArgument,
	ErrCodeInvalidPath:     ExitInvalidPath,
	ErrCodeInvalidConfig:   ExitInvalidConfig,
	ErrCodePoolNotFound:    ExitPoolNotFound,
	ErrCodeBackendError:    ExitBackendError,
	ErrCodeTimeout:         ExitTimeout,
	ErrCodeAuthRequired:    ExitAuthRequired,
	ErrCodeDiscrepancies:   ExitDiscrepancies,
	ErrCodeInternalError:   ExitInternalError,
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	if code, ok := exitCodes[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError carries the CLIError a command reports alongside its cause
type AppError struct {
	CLIError types.CLIError
	Err      error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode maps the error onto a process exit code
func (e *AppError) ExitCode() int {
	return GetExitCode(e.CLIError.Code)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps err as its cause
func WrapAppError(cliErr types.CLIError, err error) *AppError {
	return &AppError{CLIError: cliErr, Err: err}
}
