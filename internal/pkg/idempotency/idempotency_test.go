package idempotency

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// newRedis starts a throwaway Redis container. Docker-backed tests only run
// when OTPBRIDGE_DOCKER_TESTS is set.
func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("OTPBRIDGE_DOCKER_TESTS") == "" {
		t.Skip("set OTPBRIDGE_DOCKER_TESTS=1 to run tests against a redis container")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint:errcheck // best effort cleanup
		_ = testcontainers.TerminateContainer(container)
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() {
		//nolint:errcheck // best effort cleanup
		_ = client.Close()
	})
	return client
}

func TestStateTracker_Exec(t *testing.T) {
	// Arrange
	client := newRedis(t)
	tracker := New(client, "retriever")
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) error {
		calls++
		return nil
	}

	// Act
	first := tracker.Exec(ctx, "msg-1", fn)
	second := tracker.Exec(ctx, "msg-1", fn)

	// Assert
	require.NoError(t, first)
	assert.ErrorIs(t, second, ErrAlreadyCompleted)
	assert.True(t, IsDuplicate(second))
	assert.Equal(t, 1, calls)

	val, err := client.Get(ctx, "idempotency:retriever:msg-1").Result()
	require.NoError(t, err)
	assert.Equal(t, string(StateCompleted), val)
}

func TestStateTracker_ExecFailure(t *testing.T) {
	// Arrange
	client := newRedis(t)
	tracker := New(client, "")
	ctx := context.Background()
	errBoom := errors.New("boom")
	failing := func(context.Context) error { return errBoom }

	// Act and Assert
	assert.ErrorIs(t, tracker.Exec(ctx, "kept", failing), errBoom)
	assert.ErrorIs(t, tracker.Exec(ctx, "kept", failing), ErrAlreadyFailed)

	assert.ErrorIs(t, tracker.Exec(ctx, "released", failing, WithReleaseOnError()), errBoom)
	assert.NoError(t, tracker.Exec(ctx, "released", func(context.Context) error { return nil }))
}

func TestStateTracker_InProgressAndExpiry(t *testing.T) {
	// Arrange
	client := newRedis(t)
	tracker := New(client, "")
	ctx := context.Background()

	state, err := tracker.Acquire(ctx, "lock", 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StateNone, state)

	// Act
	busy := tracker.Exec(ctx, "lock", func(context.Context) error { return nil })

	// Assert
	assert.ErrorIs(t, busy, ErrAlreadyInProgress)
	require.Eventually(t, func() bool {
		return tracker.Exec(ctx, "lock", func(context.Context) error { return nil }) == nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestStateTracker_InvalidState(t *testing.T) {
	client := newRedis(t)
	tracker := New(client, "")
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "idempotency:weird", "banana", time.Minute).Err())

	_, err := tracker.Acquire(ctx, "weird", time.Minute)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(ErrAlreadyInProgress))
	assert.True(t, IsDuplicate(ErrAlreadyFailed))
	assert.False(t, IsDuplicate(errors.New("other")))
	assert.False(t, IsDuplicate(nil))
}
