package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/messaging"
	"github.com/shandysiswandi/otpbridge/internal/pkg/uid"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	intake *Intake
	uuid   uid.StringID
	ins    instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := messaging.HeaderValue(msg, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// SMSRetrieved hands a delivery from the device agent to the listener.
// Malformed payloads are logged and acked so they are not redelivered.
func (h *MQHandler) SMSRetrieved(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("retriever.inbound.mq").Start(ctx, "SMSRetrieved")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: sms retrieved", "msg_id", msg.ID())

	var payload event.SMSRetrievedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of sms retrieved", "msg_body", string(body), "error", err)
		return nil
	}

	key := lo.CoalesceOrEmpty(payload.ID, msg.ID())
	if _, err := h.intake.accept(ctx, key, toDelivery(payload)); err != nil {
		slog.ErrorContext(ctx, "failed to consume sms retrieved", "msg_id", key, "error", err)
		return err
	}

	return nil
}
