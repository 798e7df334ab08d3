package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// HeaderMessageID carries a producer-assigned message ID on brokers that do
// not have a native slot for it.
const HeaderMessageID = "Msg-Id"

var (
	// ErrUnsupported is returned when the selected broker lacks a feature,
	// for example delayed delivery.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrTopicRequired is returned when the destination or source is empty.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned when the broker needs a consumer group,
	// channel or subscription and none was given.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
	// ErrAddressRequired is returned when a broker address is not configured.
	ErrAddressRequired = errors.New("messaging: broker address is required")
)

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic, subject or queue).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer consumes messages from a source until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
//
// With auto-ack enabled a nil error acks and a non-nil error nacks.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a broker-agnostic message to be published.
type OutgoingMessage struct {
	// ID is an optional producer-assigned ID used for deduplication downstream.
	ID string
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning.
	Key []byte
	// Headers are mapped to native headers, or attributes on Pub/Sub.
	Headers []Header
	// OrderingKey is used by Google Pub/Sub.
	OrderingKey string
	// Delay requests deferred delivery when supported.
	Delay time.Duration
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	MessageID string
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Message is a broker-agnostic received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	// ID returns the producer-assigned ID when one was sent, else the broker ID.
	ID() string
	Topic() string
	Timestamp() time.Time
	// Ack acknowledges successful processing.
	Ack(ctx context.Context) error
}

// Nackable can request redelivery of a message.
type Nackable interface {
	Nack(ctx context.Context) error
}

// HeaderValue returns the first value of header key in msg, or "".
func HeaderValue(msg Message, key string) string {
	for _, h := range msg.Headers() {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
