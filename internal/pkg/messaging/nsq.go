package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	// ProducerAddr is the nsqd address for publishing.
	ProducerAddr string
	// ConsumerNSQDAddrs lists nsqd addresses for consumers.
	ConsumerNSQDAddrs []string
	// ConsumerLookupdAddrs lists lookupd addresses for consumers. They win
	// over ConsumerNSQDAddrs when both are set.
	ConsumerLookupdAddrs []string
	// ProducerConfig overrides the default producer config.
	ProducerConfig *nsq.Config
	// ConsumerConfig overrides the default consumer config.
	ConsumerConfig *nsq.Config
}

// NSQ is a messaging implementation backed by NSQ. NSQ has no headers, so
// only the body travels and IDs are the nsqd-assigned ones.
type NSQ struct {
	producer *nsq.Producer
	cfg      NSQConfig

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ constructs an NSQ client. The producer is optional.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ConsumerConfig == nil {
		cfg.ConsumerConfig = nsq.NewConfig()
	}

	n := &NSQ{cfg: cfg}
	if cfg.ProducerAddr == "" {
		return n, nil
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}
	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)
	n.producer = p

	return n, nil
}

// Close stops consumers and the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		stopNSQ(c)
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

// Publish sends msg to an NSQ topic, deferred when msg.Delay is set.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if n.producer == nil {
		return PublishResult{}, fmt.Errorf("%w: nsq producer", ErrAddressRequired)
	}

	var err error
	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(destination, msg.Delay, msg.Body)
	} else {
		err = n.producer.Publish(destination, msg.Body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Consume reads source on the configured channel until ctx is done.
func (n *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if len(n.cfg.ConsumerNSQDAddrs) == 0 && len(n.cfg.ConsumerLookupdAddrs) == 0 {
		return fmt.Errorf("%w: nsq consumer", ErrAddressRequired)
	}

	co := newConsumeOptions(opts...)
	if co.channel == "" {
		return ErrGroupRequired
	}

	ccfg := *n.cfg.ConsumerConfig
	ccfg.MaxInFlight = max(co.maxInFlight, ccfg.MaxInFlight, co.workers())

	consumer, err := nsq.NewConsumer(source, co.channel, &ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return dispatch(ctx, DriverNSQ, handler, nsqDelivery(source, m), co.autoAck)
	}), co.workers())

	if err := n.track(consumer); err != nil {
		stopNSQ(consumer)
		return err
	}

	if len(n.cfg.ConsumerLookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.ConsumerLookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.ConsumerNSQDAddrs)
	}
	if err != nil {
		stopNSQ(consumer)
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		stopNSQ(consumer)
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func stopNSQ(c *nsq.Consumer) {
	c.Stop()
	<-c.StopChan
}

func nsqDelivery(topic string, m *nsq.Message) *delivery {
	return &delivery{
		id:    fmt.Sprintf("%x", m.ID),
		topic: topic,
		body:  m.Body,
		ts:    time.Unix(0, m.Timestamp),
		ack: func(context.Context) error {
			m.Finish()
			return nil
		},
		nack: func(context.Context) error {
			m.Requeue(-1)
			return nil
		},
	}
}
