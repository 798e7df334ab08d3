// Package idempotency guards side effects with a Redis-backed state per key
// so that redelivered broker messages run at most once.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyInProgress is returned while another caller holds the key.
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	// ErrAlreadyCompleted is returned when the key already completed.
	ErrAlreadyCompleted = errors.New("idempotency: operation already completed")
	// ErrAlreadyFailed is returned when the key failed and the failure is kept.
	ErrAlreadyFailed = errors.New("idempotency: operation already failed")
	// ErrInvalidState is returned when the stored value is not a known state.
	ErrInvalidState = errors.New("idempotency: invalid state")
)

// State is the stored progress of a key.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// IsDuplicate reports whether err means the operation was skipped because
// the key was already seen.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrAlreadyInProgress) || errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrAlreadyFailed)
}

// Idempotency runs fn at most once per key.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
	defaultPrefix       = "idempotency:"
)

// Option tunes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration   time.Duration
	stateTTL       time.Duration
	releaseOnError bool
}

// WithLockDuration sets how long an in-progress key blocks other callers.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long the completed or failed state is kept.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// WithReleaseOnError deletes the key when fn fails so a redelivery can retry,
// instead of recording StateFailed.
func WithReleaseOnError() Option {
	return func(o *execOptions) { o.releaseOnError = true }
}

// StateTracker implements Idempotency on Redis.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a StateTracker storing keys under "idempotency:<namespace>:".
func New(client redis.UniversalClient, namespace string) *StateTracker {
	prefix := defaultPrefix
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &StateTracker{client: client, prefix: prefix}
}

// Acquire claims key for lockDuration. StateNone means the caller owns it;
// any other state reports why it could not be claimed.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	for range 2 {
		ok, err := s.client.SetNX(ctx, fk, string(StateInProgress), lockDuration).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return StateNone, nil
		}

		got, err := s.client.Get(ctx, fk).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SetNX and Get
			continue
		}
		if err != nil {
			return "", err
		}

		switch st := State(got); st {
		case StateInProgress, StateCompleted, StateFailed:
			return st, nil
		default:
			return "", ErrInvalidState
		}
	}

	return "", ErrInvalidState
}

// Exec claims key, runs fn and records the outcome. A key that is already
// claimed yields ErrAlreadyInProgress, ErrAlreadyCompleted or ErrAlreadyFailed
// without calling fn.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	fk := s.prefix + key
	if err := fn(ctx); err != nil {
		var markErr error
		if o.releaseOnError {
			markErr = s.client.Del(ctx, fk).Err()
		} else {
			markErr = s.client.Set(ctx, fk, string(StateFailed), o.stateTTL).Err()
		}
		return errors.Join(err, markErr)
	}

	return s.client.Set(ctx, fk, string(StateCompleted), o.stateTTL).Err()
}
