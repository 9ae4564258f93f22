package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("no such file or directory")
	ErrPermission   = errors.New("permission denied")
	ErrUnauthorized = errors.New("authentication required")
	ErrUnsupported  = errors.New("operation not supported by backend")
)

// Error is a failed backend call
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error for op and path. Errors that already are
// backend errors and nil pass through unchanged.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Path: path, Err: err}
}

// IsBackendError reports whether err came from a backend call
func IsBackendError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}
