package usecase

import (
	"context"
	"errors"

	"github.com/shandysiswandi/otpbridge/internal/pkg/goerror"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

// toGoError maps session failures to transport-facing errors. The wrapped
// error stays reachable through errors.Is and errors.As.
func toGoError(err error) error {
	if err == nil {
		return nil
	}

	var info *entity.ErrorInfo
	switch {
	case errors.As(err, &info):
		return goerror.Wrap(err, info.Detail, kindCode(info.Kind), "type", info.Kind.String())
	case errors.Is(err, entity.ErrPendingResult):
		return goerror.Wrap(err, "A result is already pending", goerror.CodeConflict, "type", "PENDING_RESULT")
	case errors.Is(err, entity.ErrListenerStopped):
		return goerror.Wrap(err, "Listener was stopped", goerror.CodeConflict, "type", "LISTENER_STOPPED")
	case errors.Is(err, entity.ErrNoAppSignature):
		return goerror.Wrap(err, "No app signatures found", goerror.CodeNotFound, "type", "NO_SIGNATURES")
	case errors.Is(err, context.DeadlineExceeded):
		return goerror.Wrap(err, "Request timed out", goerror.CodeTimeout)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return goerror.NewServer(err)
	}
}

func kindCode(k entity.ErrorKind) goerror.Code {
	switch k {
	case entity.ErrorKindTimeout:
		return goerror.CodeTimeout
	case entity.ErrorKindServiceUnavailable:
		return goerror.CodeUnavailable
	case entity.ErrorKindInvalidFormat:
		return goerror.CodeInvalidInput
	default:
		return goerror.CodeInternal
	}
}
