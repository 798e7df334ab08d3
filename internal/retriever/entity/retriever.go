package entity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPendingResult is returned when a waiter asks for a result while
	// another waiter already holds the single pending slot.
	ErrPendingResult = errors.New("a result is already pending")
	// ErrListenerStopped is returned to a waiter whose episode was stopped.
	ErrListenerStopped = errors.New("listener stopped")
	// ErrNoAppSignature is returned when no app hash can be produced.
	ErrNoAppSignature = errors.New("no app signatures found")
)

// ErrorInfo is the typed failure of one episode.
type ErrorInfo struct {
	Kind   ErrorKind `json:"type"`
	Detail string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return e.Kind.String() + ": " + e.Detail
}

// Delivery is one notification from the device agent.
type Delivery struct {
	// Message is the SMS body; nil when the platform sent none.
	Message *string
	Status  DeliveryStatus
	// RawStatus is the status as received, used in error details.
	RawStatus string
}

type EventType string

const (
	EventCodeReceived EventType = "code_received"
	EventError        EventType = "error"
)

// Event is the single terminal outcome of an episode.
type Event struct {
	Type      EventType  `json:"type"`
	Code      string     `json:"code,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	EpisodeID int64      `json:"episode_id,string"`
	At        time.Time  `json:"at"`
}

// Status is a point-in-time view of the listener.
type Status struct {
	IsListening  bool `json:"is_listening"`
	IsRegistered bool `json:"is_registered"`
}

// DeliveryFunc receives deliveries from a notifier subscription.
type DeliveryFunc func(ctx context.Context, d Delivery)

type episodeKey struct{}

// WithEpisode stores the episode ID on ctx for outbound commands.
func WithEpisode(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, episodeKey{}, id)
}

// EpisodeFromContext returns the episode ID stored by WithEpisode, or 0.
func EpisodeFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(episodeKey{}).(int64)
	return id
}
