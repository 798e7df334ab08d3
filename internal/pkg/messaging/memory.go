package messaging

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// memoryMaxAttempts bounds redelivery of nacked messages on the memory broker.
const memoryMaxAttempts = 3

// Memory is an in-process broker for local development and tests.
//
// Every consumer group of a topic receives each message once; inside a group
// messages are spread round-robin. Consumers without any group name form
// their own group. Nacked messages are redelivered up to memoryMaxAttempts.
type Memory struct {
	seq   atomic.Uint64
	anon  atomic.Uint64
	done  chan struct{}
	once sync.Once

	mu     sync.Mutex
	groups map[string]map[string]*memoryGroup // topic -> group -> members
}

type memoryGroup struct {
	next    int
	members []*memorySub
}

type memorySub struct {
	ch   chan *memoryEnvelope
	quit chan struct{}
}

type memoryEnvelope struct {
	id       string
	topic    string
	body     []byte
	key      []byte
	headers  []Header
	ts       time.Time
	attempts int
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		done:   make(chan struct{}),
		groups: map[string]map[string]*memoryGroup{},
	}
}

// Close stops every consumer. Publishing afterwards fails with io.ErrClosedPipe.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// Publish hands msg to one member of every group subscribed to destination.
// It blocks while a member's buffer is full.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}
	select {
	case <-m.done:
		return PublishResult{}, io.ErrClosedPipe
	default:
	}

	id := msg.ID
	if id == "" {
		id = strconv.FormatUint(m.seq.Add(1), 10)
	}
	env := &memoryEnvelope{
		id:      id,
		topic:   destination,
		body:    msg.Body,
		key:     msg.Key,
		headers: msg.Headers,
		ts:      time.Now(),
	}

	for _, sub := range m.pick(destination) {
		select {
		case sub.ch <- env:
		case <-sub.quit:
		case <-m.done:
			return PublishResult{}, io.ErrClosedPipe
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: env.ts}, nil
}

// Consume joins the consumer group named by the first of WithGroup,
// WithQueueGroup, WithChannel or WithSubscription, and blocks until ctx is
// done or the broker is closed.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := firstNonEmpty(co.group, co.queueGroup, co.channel, co.subscription)
	if group == "" {
		group = "anon-" + strconv.FormatUint(m.anon.Add(1), 10)
	}

	sub := &memorySub{
		ch:   make(chan *memoryEnvelope, max(co.maxInFlight, 64)),
		quit: make(chan struct{}),
	}
	m.join(source, group, sub)
	defer m.leave(source, group, sub)

	var wg sync.WaitGroup
	for range co.workers() {
		wg.Go(func() {
			for {
				select {
				case env := <-sub.ch:
					//nolint:errcheck // memory ack/nack never fail
					_ = dispatch(ctx, DriverMemory, handler, m.delivery(sub, env), co.autoAck)
				case <-sub.quit:
					return
				}
			}
		})
	}

	select {
	case <-ctx.Done():
	case <-m.done:
	}
	close(sub.quit)
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) delivery(sub *memorySub, env *memoryEnvelope) *delivery {
	return &delivery{
		id:      env.id,
		topic:   env.topic,
		body:    env.body,
		key:     env.key,
		headers: env.headers,
		ts:      env.ts,
		ack:     func(context.Context) error { return nil },
		nack: func(context.Context) error {
			if env.attempts+1 >= memoryMaxAttempts {
				return nil
			}
			retry := *env
			retry.attempts++
			go func() {
				select {
				case sub.ch <- &retry:
				case <-sub.quit:
				}
			}()
			return nil
		},
	}
}

func (m *Memory) pick(topic string) []*memorySub {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*memorySub
	for _, g := range m.groups[topic] {
		if len(g.members) == 0 {
			continue
		}
		out = append(out, g.members[g.next%len(g.members)])
		g.next++
	}
	return out
}

func (m *Memory) join(topic, group string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.groups[topic]
	if !ok {
		groups = map[string]*memoryGroup{}
		m.groups[topic] = groups
	}
	g, ok := groups[group]
	if !ok {
		g = &memoryGroup{}
		groups[group] = g
	}
	g.members = append(g.members, sub)
}

func (m *Memory) leave(topic, group string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.groups[topic][group]
	if g == nil {
		return
	}
	for i, s := range g.members {
		if s == sub {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	if len(g.members) == 0 {
		delete(m.groups[topic], group)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
