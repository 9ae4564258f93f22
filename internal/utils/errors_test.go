package utils

import (
	"errors"
	"testing"
)

func TestAppError_ExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeDiscrepancies, ExitDiscrepancies},
		{ErrCodeBackendError, ExitBackendError},
		{ErrCodeTimeout, ExitTimeout},
		{ErrCodeAuthRequired, ExitAuthRequired},
		{ErrCodeInvalidArgument, ExitInvalidArgument},
		{ErrCodeInvalidPath, ExitInvalidPath},
		{ErrCodeInvalidConfig, ExitInvalidConfig},
		{ErrCodePoolNotFound, ExitPoolNotFound},
		{ErrCodeInternalError, ExitInternalError},
		{ErrCodeUnknown, ExitUnknown},
		{"SOMETHING_ELSE", ExitUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewAppError(NewCLIError(tt.code, "x").Build())
			if got := err.ExitCode(); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapAppError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := WrapAppError(NewCLIError(ErrCodeBackendError, "listing directives failed").
		WithRetryable(true).
		WithContext("pool", "hot").
		Build(), cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if got := err.Error(); got != "BACKEND_ERROR: listing directives failed" {
		t.Errorf("Error() = %q", got)
	}
	if !err.CLIError.Retryable || err.CLIError.Context["pool"] != "hot" {
		t.Errorf("CLIError = %+v", err.CLIError)
	}
}
