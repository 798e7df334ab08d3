package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// PubSubConfig configures the Google Pub/Sub implementation.
type PubSubConfig struct {
	// ProjectID is the Google Cloud project ID.
	ProjectID string
	// Client is an existing client. When set, ProjectID and ClientOptions are ignored.
	Client *pubsub.Client
	// ClientOptions are used when creating a new client, e.g. credentials.
	ClientOptions []option.ClientOption
}

// PubSub is a messaging implementation backed by Google Pub/Sub. Headers are
// carried as message attributes.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewPubSub constructs a Pub/Sub client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	p := &PubSub{client: cfg.Client, publishers: map[string]*pubsub.Publisher{}}
	if p.client != nil {
		return p, nil
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: pubsub project id", ErrAddressRequired)
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}
	p.client = c

	return p, nil
}

// Close stops publishers and closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := p.publishers
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}

// Publish sends msg to a Pub/Sub topic and waits for the server ID.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return PublishResult{}, err
	}

	headers := withMessageID(msg)
	attrs := make(map[string]string, len(headers))
	for _, h := range headers {
		if _, dup := attrs[h.Key]; h.Key != "" && !dup {
			attrs[h.Key] = string(h.Value)
		}
	}

	id, err := pub.Publish(ctx, &pubsub.Message{
		Data:        msg.Body,
		Attributes:  attrs,
		OrderingKey: msg.OrderingKey,
	}).Get(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}

	return PublishResult{MessageID: id, Topic: destination}, nil
}

// Consume receives from the subscription named by WithSubscription, or from
// source itself when no subscription is given.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if err := p.ensureOpen(); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	subscription := source
	if co.subscription != "" {
		subscription = co.subscription
	}

	sub := p.client.Subscriber(subscription)
	if co.concurrency > 0 {
		sub.ReceiveSettings.NumGoroutines = co.concurrency
	}
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		//nolint:errcheck // Ack and Nack on pubsub never fail synchronously
		_ = dispatch(ctx, DriverGooglePubSub, handler, pubsubDelivery(source, m), co.autoAck)
	})
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, io.ErrClosedPipe
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub, nil
}

func (p *PubSub) ensureOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return io.ErrClosedPipe
	}
	return nil
}

func pubsubDelivery(topic string, m *pubsub.Message) *delivery {
	headers := make([]Header, 0, len(m.Attributes))
	for k, v := range m.Attributes {
		headers = append(headers, Header{Key: k, Value: []byte(v)})
	}

	return &delivery{
		id:      messageID(headers, m.ID),
		topic:   topic,
		body:    m.Data,
		key:     []byte(m.OrderingKey),
		headers: headers,
		ts:      m.PublishTime,
		ack: func(context.Context) error {
			m.Ack()
			return nil
		},
		nack: func(context.Context) error {
			m.Nack()
			return nil
		},
	}
}
