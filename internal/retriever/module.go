package retriever

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/pkg/clock"
	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpbridge/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/messaging"
	"github.com/shandysiswandi/otpbridge/internal/pkg/otp"
	"github.com/shandysiswandi/otpbridge/internal/pkg/router"
	"github.com/shandysiswandi/otpbridge/internal/pkg/uid"
	"github.com/shandysiswandi/otpbridge/internal/pkg/validator"
	"github.com/shandysiswandi/otpbridge/internal/retriever/adapter"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/retriever/inbound"
	"github.com/shandysiswandi/otpbridge/internal/retriever/outbound/mq"
	"github.com/shandysiswandi/otpbridge/internal/retriever/outbound/notifier"
	"github.com/shandysiswandi/otpbridge/internal/retriever/outbound/platform"
	"github.com/shandysiswandi/otpbridge/internal/retriever/usecase"
)

type Dependency struct {
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Totp       otp.Source                 `validate:"required"`
	Validator  validator.Validator        `validate:"required"`

	// Ctx scopes the broker consumers and the auto-started listener. Nil
	// registers HTTP endpoints only.
	Ctx context.Context

	// Idempotency suppresses redelivered deliveries. Nil disables the check.
	Idempotency idempotency.Idempotency
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	hub := notifier.New()
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Clock, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Platform:      platform.NewGateway(repoMsg, dep.Config),
		Notifier:      hub,
		RepoMessaging: repoMsg,
		Goroutine:     dep.Goroutine,
		Validator:     dep.Validator,
		Config:        dep.Config,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
	})

	intake := inbound.NewIntake(hub, dep.Idempotency, dep.Config)

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Config, uc, intake)
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, intake, dep.Instrument)

		if dep.Config.GetBool("modules.retriever.auto_start") {
			autoStart(dep.Ctx, uc)
		}
	}

	return nil
}

// autoStart keeps one listener episode running for the process lifetime and
// logs every outcome. The listener is stopped when ctx is done.
func autoStart(ctx context.Context, uc *usecase.Usecase) {
	var ad *adapter.Adapter
	ad = adapter.New(adapter.FromUsecase(uc), adapter.Options{
		AutoStart: true,
		OnSuccess: func(code string) {
			slog.InfoContext(ctx, "sms code received", "code", code)
			if err := ad.Start(ctx); err != nil {
				slog.WarnContext(ctx, "failed to restart sms listener", "error", err)
			}
		},
		OnError: func(info entity.ErrorInfo) {
			slog.WarnContext(ctx, "sms retrieval failed", "type", info.Kind.String(), "error", info.Detail)
			if info.Kind == entity.ErrorKindServiceUnavailable {
				return
			}
			if err := ad.Start(ctx); err != nil {
				slog.WarnContext(ctx, "failed to restart sms listener", "error", err)
			}
		},
	})

	if err := ad.Init(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to init sms listener", "error", err)
		return
	}

	context.AfterFunc(ctx, func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := ad.Close(closeCtx); err != nil {
			slog.ErrorContext(closeCtx, "failed to close sms listener", "error", err)
		}
	})
}
