package cli

import (
	"context"
	"errors"

	"github.com/dl-alexandre/rcache/internal/audit"
	"github.com/dl-alexandre/rcache/internal/auth"
	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/submit"
	"github.com/dl-alexandre/rcache/internal/utils"
)

// fail reports err through out and returns it as an *utils.AppError so
// Run can pick the exit code
func (a *App) fail(out *OutputWriter, command string, err error) error {
	appErr := toAppError(err)
	if werr := out.WriteError(command, appErr.CLIError); werr != nil {
		a.logger.Error("Writing error output failed", logging.F("error", werr.Error()))
	}
	return appErr
}

// toAppError classifies command errors into the stable error codes
func toAppError(err error) *utils.AppError {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var pre *submit.PreconditionError
	if errors.As(err, &pre) {
		code := utils.ErrCodeInvalidArgument
		if errors.Is(pre, submit.ErrPoolNotFound) {
			code = utils.ErrCodePoolNotFound
		}
		return utils.WrapAppError(utils.NewCLIError(code, pre.Reason).Build(), err)
	}

	switch {
	case errors.Is(err, audit.ErrInvalidOptions):
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeTimeout, err.Error()).
			WithRetryable(true).Build(), err)
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, auth.ErrSecretNotFound):
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthRequired, err.Error()).Build(), err)
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, store.ErrAmbiguousRunID):
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err)
	}

	var be *backend.Error
	if errors.As(err, &be) {
		code := utils.ErrCodeBackendError
		if errors.Is(err, backend.ErrNotFound) {
			code = utils.ErrCodeInvalidPath
		}
		builder := utils.NewCLIError(code, err.Error()).WithContext("op", be.Op)
		if be.Path != "" {
			builder = builder.WithContext("path", be.Path)
		}
		return utils.WrapAppError(builder.Build(), err)
	}

	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build(), err)
}
