package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *Memory) members(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, g := range m.groups[topic] {
		n += len(g.members)
	}
	return n
}

func startConsumer(t *testing.T, m *Memory, topic string, h Handler, opts ...ConsumeOption) (stop func()) {
	t.Helper()

	before := m.members(topic)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Consume(ctx, topic, h, opts...) }()

	require.Eventually(t, func() bool { return m.members(topic) > before }, time.Second, 5*time.Millisecond)

	return func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	}
}

func TestMemory_PublishConsume(t *testing.T) {
	// Arrange
	m := NewMemory()
	defer m.Close()

	got := make(chan Message, 1)
	stop := startConsumer(t, m, "sms_retrieved", func(_ context.Context, msg Message) error {
		got <- msg
		return nil
	}, WithGroup("retriever"), WithAutoAck(true))
	defer stop()

	// Act
	res, err := m.Publish(context.Background(), "sms_retrieved", OutgoingMessage{
		ID:      "evt-1",
		Body:    []byte(`{"status":"SUCCESS"}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-1")}},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "evt-1", res.MessageID)

	select {
	case msg := <-got:
		assert.Equal(t, "evt-1", msg.ID())
		assert.Equal(t, "sms_retrieved", msg.Topic())
		assert.JSONEq(t, `{"status":"SUCCESS"}`, string(msg.Body()))
		assert.Equal(t, "cid-1", HeaderValue(msg, "cID"))
		assert.Empty(t, HeaderValue(msg, "missing"))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemory_GroupsAndRoundRobin(t *testing.T) {
	// Arrange
	m := NewMemory()
	defer m.Close()

	var a1, a2, b atomic.Int32
	var wg sync.WaitGroup
	wg.Add(8)
	count := func(c *atomic.Int32) Handler {
		return func(context.Context, Message) error {
			c.Add(1)
			wg.Done()
			return nil
		}
	}

	defer startConsumer(t, m, "t", count(&a1), WithGroup("a"))()
	defer startConsumer(t, m, "t", count(&a2), WithQueueGroup("a"))()
	defer startConsumer(t, m, "t", count(&b), WithChannel("b"))()

	// Act
	for range 4 {
		_, err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")})
		require.NoError(t, err)
	}
	wg.Wait()

	// Assert
	assert.Equal(t, int32(2), a1.Load())
	assert.Equal(t, int32(2), a2.Load())
	assert.Equal(t, int32(4), b.Load())
}

func TestMemory_NackRedelivers(t *testing.T) {
	// Arrange
	m := NewMemory()
	defer m.Close()

	var attempts atomic.Int32
	delivered := make(chan struct{}, memoryMaxAttempts+1)
	defer startConsumer(t, m, "t", func(context.Context, Message) error {
		attempts.Add(1)
		delivered <- struct{}{}
		return errors.New("try again")
	}, WithAutoAck(true))()

	// Act
	_, err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)

	// Assert
	for range memoryMaxAttempts {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("expected redelivery")
		}
	}
	select {
	case <-delivered:
		t.Fatal("redelivered beyond the attempt limit")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(memoryMaxAttempts), attempts.Load())
}

func TestMemory_Errors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrTopicRequired)

	_, err = m.Publish(ctx, "t", OutgoingMessage{Delay: time.Second})
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.ErrorIs(t, m.Consume(ctx, "t", nil), ErrHandlerRequired)
	assert.ErrorIs(t, m.Consume(ctx, "", func(context.Context, Message) error { return nil }), ErrTopicRequired)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.Publish(ctx, "t", OutgoingMessage{})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NoError(t, m.Consume(ctx, "t", func(context.Context, Message) error { return nil }))
}

func TestMemory_PanicInHandlerIsRecovered(t *testing.T) {
	// Arrange
	m := NewMemory()
	defer m.Close()

	calls := make(chan struct{}, memoryMaxAttempts)
	defer startConsumer(t, m, "t", func(context.Context, Message) error {
		calls <- struct{}{}
		panic("boom")
	}, WithAutoAck(true))()

	// Act
	_, err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")})

	// Assert
	require.NoError(t, err)
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestNewFromDriver(t *testing.T) {
	msg, err := NewFromDriver(context.Background(), " Memory ", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, msg)

	_, err = NewFromDriver(context.Background(), "carrier-pigeon", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(context.Background(), DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestDispatch_ManualAckIsNotOverridden(t *testing.T) {
	// Arrange
	var acks, nacks int
	d := &delivery{
		ack:  func(context.Context) error { acks++; return nil },
		nack: func(context.Context) error { nacks++; return nil },
	}

	// Act
	err := dispatch(context.Background(), "test", func(ctx context.Context, msg Message) error {
		require.NoError(t, msg.Ack(ctx))
		return errors.New("late failure")
	}, d, true)

	// Assert
	assert.EqualError(t, err, "late failure")
	assert.Equal(t, 1, acks)
	assert.Zero(t, nacks)
}

func TestMessageID(t *testing.T) {
	headers := withMessageID(OutgoingMessage{ID: "abc", Headers: []Header{{Key: "cID", Value: []byte("1")}}})
	assert.Equal(t, "abc", messageID(headers, "native"))
	assert.Equal(t, "native", messageID(nil, "native"))
	assert.Nil(t, withMessageID(OutgoingMessage{}))
}
