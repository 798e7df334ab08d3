package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/otpbridge/internal/pkg/goerror"
)

type SimulateInput struct {
	Message    *string `validate:"omitempty,max=1024"`
	Status     string  `validate:"omitempty,max=64"`
	StatusCode *int    `validate:"omitempty,min=0"`
	Code       string  `validate:"omitempty,otpcode"`
}

type SimulateOutput struct {
	ID      string
	Message string
	Code    string
}

// Simulate publishes a synthetic delivery as if the device agent sent it.
// With no message and a success status, an SMS in the retriever format is
// built around Code or a freshly generated TOTP code.
func (s *Usecase) Simulate(ctx context.Context, in SimulateInput) (*SimulateOutput, error) {
	ctx, span := s.startSpan(ctx, "Simulate")
	defer span.End()

	if !s.cfg.GetBool("modules.retriever.simulator.enabled") {
		return nil, goerror.NewBusiness("Simulator is disabled", goerror.CodeForbidden)
	}

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid simulate payload", "error", err)
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Status == "" && in.StatusCode == nil {
		in.Status = "SUCCESS"
	}

	out := &SimulateOutput{ID: s.uuid.Generate(), Code: in.Code}
	if in.Message == nil && in.StatusCode == nil && in.Status == "SUCCESS" {
		if out.Code == "" {
			code, err := s.totp.Code(s.clock.Now())
			if err != nil {
				slog.ErrorContext(ctx, "failed to generate simulated code", "error", err)
				return nil, goerror.NewServer(err)
			}
			out.Code = code
		}

		hash, err := s.platform.AppSignature(ctx)
		if err != nil {
			slog.WarnContext(ctx, "simulating sms without app hash", "error", err)
		}

		msg := fmt.Sprintf("<#> Your verification code is %s\n\n%s", out.Code, hash)
		in.Message = &msg
	}
	if in.Message != nil {
		out.Message = *in.Message
	}

	if err := s.repoMessaging.PublishSMSRetrieved(ctx, SMSRetrievedEvent{
		ID:         out.ID,
		Message:    in.Message,
		Status:     in.Status,
		StatusCode: in.StatusCode,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish simulated sms", "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}
