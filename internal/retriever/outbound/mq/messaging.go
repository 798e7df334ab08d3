package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpbridge/internal/pkg/clock"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/messaging"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/retriever/usecase"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

const (
	publishMaxRetries = 3
	publishBaseDelay  = 100 * time.Millisecond
	publishMaxDelay   = 2 * time.Second
)

type Messaging struct {
	client messaging.Publisher
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, clk clock.Clocker, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, clock: clk, ins: ins}
}

// PublishRetrieverCommand asks the device agent to start or stop listening.
func (m *Messaging) PublishRetrieverCommand(ctx context.Context, command string) error {
	ctx, span := m.ins.Tracer("retriever.outbound.mq").Start(ctx, "PublishRetrieverCommand")
	defer span.End()

	body, err := json.Marshal(event.RetrieverCommandMessage{
		Command:   command,
		EpisodeID: entity.EpisodeFromContext(ctx),
		IssuedAt:  m.clock.Now().UnixMilli(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.publish(ctx, event.RetrieverCommandDestination, messaging.OutgoingMessage{Body: body}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishSMSRetrieved(ctx context.Context, msg usecase.SMSRetrievedEvent) error {
	ctx, span := m.ins.Tracer("retriever.outbound.mq").Start(ctx, "PublishSMSRetrieved")
	defer span.End()

	body, err := json.Marshal(event.SMSRetrievedMessage{
		ID:         msg.ID,
		Message:    msg.Message,
		Status:     msg.Status,
		StatusCode: msg.StatusCode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.publish(ctx, event.SMSRetrievedDestination, messaging.OutgoingMessage{ID: msg.ID, Body: body}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) publish(ctx context.Context, destination string, out messaging.OutgoingMessage) error {
	cID := instrument.GetCorrelationID(ctx)
	out.Headers = append(out.Headers, messaging.Header{Key: keyOfCorrelationID, Value: []byte(cID)})

	b := retry.NewFibonacci(publishBaseDelay)
	b = retry.WithCappedDuration(publishMaxDelay, b)
	b = retry.WithMaxRetries(publishMaxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if _, err := m.client.Publish(ctx, destination, out); err != nil {
			slog.WarnContext(ctx, "failed to publish message", "destination", destination, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
