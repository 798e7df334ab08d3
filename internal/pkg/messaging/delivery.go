package messaging

import (
	"context"
	"sync/atomic"
	"time"
)

// delivery is the Message handed to handlers by every driver. Drivers fill in
// the fields and the ack/nack hooks.
type delivery struct {
	id      string
	topic   string
	body    []byte
	key     []byte
	headers []Header
	ts      time.Time

	ack  func(ctx context.Context) error
	nack func(ctx context.Context) error

	responded atomic.Bool
}

func (d *delivery) Body() []byte         { return d.body }
func (d *delivery) Key() []byte          { return d.key }
func (d *delivery) Headers() []Header    { return d.headers }
func (d *delivery) ID() string           { return d.id }
func (d *delivery) Topic() string        { return d.topic }
func (d *delivery) Timestamp() time.Time { return d.ts }

func (d *delivery) Ack(ctx context.Context) error {
	return d.respond(ctx, d.ack)
}

func (d *delivery) Nack(ctx context.Context) error {
	return d.respond(ctx, d.nack)
}

func (d *delivery) respond(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.responded.Swap(true) || fn == nil {
		return nil
	}
	return fn(ctx)
}

// dispatch runs handler for d, recovering panics, and settles d when autoAck
// is set and the handler did not already ack or nack.
func dispatch(ctx context.Context, kind string, handler Handler, d *delivery, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error {
		return handler(ctx, d)
	})

	if !autoAck || d.responded.Load() {
		return herr
	}
	if herr != nil {
		return d.Nack(ctx)
	}
	return d.Ack(ctx)
}

// messageID prefers a producer-assigned ID carried in headers over the
// broker-native one.
func messageID(headers []Header, native string) string {
	for _, h := range headers {
		if h.Key == HeaderMessageID && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return native
}

func withMessageID(msg OutgoingMessage) []Header {
	if msg.ID == "" {
		return msg.Headers
	}
	return append([]Header{{Key: HeaderMessageID, Value: []byte(msg.ID)}}, msg.Headers...)
}
