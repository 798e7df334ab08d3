package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
)

// Intake is shared by the broker consumer and the webhook so a delivery
// redelivered on either transport reaches the listener once.
type Intake struct {
	dispatcher dispatcher
	idemp      idempotency.Idempotency
	cfg        config.Config
}

// NewIntake builds an Intake. A nil idemp disables duplicate suppression.
func NewIntake(d dispatcher, idemp idempotency.Idempotency, cfg config.Config) *Intake {
	return &Intake{dispatcher: d, idemp: idemp, cfg: cfg}
}

func toDelivery(payload event.SMSRetrievedMessage) entity.Delivery {
	status, raw := entity.NewDeliveryStatus(payload.Status, payload.StatusCode)
	return entity.Delivery{Message: payload.Message, Status: status, RawStatus: raw}
}

// accept dispatches d at most once per key. An empty key skips the check.
func (i *Intake) accept(ctx context.Context, key string, d entity.Delivery) (bool, error) {
	if key == "" || i.idemp == nil {
		return i.dispatcher.Dispatch(ctx, d), nil
	}

	var dispatched bool
	err := i.idemp.Exec(ctx, "delivery:"+key, func(ctx context.Context) error {
		dispatched = i.dispatcher.Dispatch(ctx, d)
		return nil
	},
		idempotency.WithLockDuration(i.cfg.GetSecond("modules.retriever.idempotency.lock_seconds")),
		idempotency.WithStateTTL(i.cfg.GetSecond("modules.retriever.idempotency.ttl_seconds")),
		idempotency.WithReleaseOnError(),
	)
	if idempotency.IsDuplicate(err) {
		slog.InfoContext(ctx, "skipping duplicate sms delivery", "delivery_id", key)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !dispatched {
		slog.WarnContext(ctx, "no sms listener registered, delivery dropped", "delivery_id", key)
	}
	return dispatched, nil
}
