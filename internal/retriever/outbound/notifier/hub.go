// Package notifier hands deliveries from inbound transports to the single
// listener subscription of the session.
package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

var (
	// ErrAlreadySubscribed is returned when a receiver is already registered.
	ErrAlreadySubscribed = errors.New("notifier: receiver already registered")
	// ErrNotSubscribed is returned by an unsubscribe that no longer owns the slot.
	ErrNotSubscribed = errors.New("notifier: receiver not registered")
)

// Hub holds at most one receiver.
type Hub struct {
	mu    sync.Mutex
	fn    entity.DeliveryFunc
	token uint64
}

func New() *Hub {
	return &Hub{}
}

// Subscribe registers fn and returns the function that removes it.
func (h *Hub) Subscribe(fn entity.DeliveryFunc) (func() error, error) {
	if fn == nil {
		return nil, errors.New("notifier: receiver is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fn != nil {
		return nil, ErrAlreadySubscribed
	}

	h.token++
	token := h.token
	h.fn = fn

	return func() error {
		h.mu.Lock()
		defer h.mu.Unlock()

		if h.fn == nil || h.token != token {
			return ErrNotSubscribed
		}
		h.fn = nil
		return nil
	}, nil
}

// Dispatch passes d to the receiver and reports whether one was registered.
// The receiver runs outside the hub lock so it may unsubscribe itself.
func (h *Hub) Dispatch(ctx context.Context, d entity.Delivery) bool {
	h.mu.Lock()
	fn := h.fn
	h.mu.Unlock()

	if fn == nil {
		return false
	}

	fn(ctx, d)
	return true
}
