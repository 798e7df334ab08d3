package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/messaging"
	"github.com/shandysiswandi/otpbridge/internal/pkg/uid"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	in *Intake,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{intake: in, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.retriever.consumer_names")

	var consumers = []struct {
		name               string
		topic              string // destination where publisher sent message
		nsqConsumerName    string // for nsq
		natsConsumerName   string // for nats
		kafkaConsumerName  string // for kafka
		pubsubConsumerName string // for google pubsub
		handler            messaging.Handler
	}{
		{
			name:               event.SMSRetrievedConsumerRetriever,
			topic:              event.SMSRetrievedDestination,
			nsqConsumerName:    event.SMSRetrievedConsumerRetriever,
			natsConsumerName:   event.SMSRetrievedConsumerRetriever,
			kafkaConsumerName:  event.SMSRetrievedConsumerRetriever,
			pubsubConsumerName: event.SMSRetrievedConsumerRetriever,
			handler:            mqHandler.SMSRetrieved,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		accepted := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithChannel(consumer.nsqConsumerName),
				messaging.WithQueueGroup(consumer.natsConsumerName),
				messaging.WithGroup(consumer.kafkaConsumerName),
				messaging.WithSubscription(consumer.pubsubConsumerName),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(1),
				messaging.WithMaxInFlight(10),
			)
		})
		if !accepted {
			slog.ErrorContext(ctx, "failed to schedule consumer", "consumer", consumer.name)
		}
	}
}
