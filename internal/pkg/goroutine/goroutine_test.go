package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Go(t *testing.T) {
	// Arrange
	m := NewManager(4)
	var ran atomic.Int32
	errBoom := errors.New("boom")

	// Act
	for range 3 {
		assert.True(t, m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	assert.True(t, m.Go(context.Background(), func(context.Context) error { return errBoom }))
	err := m.Wait()

	// Assert
	assert.Equal(t, int32(3), ran.Load())
	assert.ErrorIs(t, err, errBoom)
}

func TestManager_GoRefusesWhenFull(t *testing.T) {
	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// Act
	accepted := m.Go(context.Background(), func(context.Context) error { return nil })

	// Assert
	assert.False(t, accepted)
	close(release)
	assert.NoError(t, m.Wait())
}

func TestManager_GoAfterWait(t *testing.T) {
	m := NewManager(1)
	assert.NoError(t, m.Wait())
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
}

func TestManager_RecoversPanic(t *testing.T) {
	m := NewManager(2)
	assert.True(t, m.Go(context.Background(), func(context.Context) error { panic("kaboom") }))
	assert.NoError(t, m.Wait())
}

func TestManager_SkipsCanceledContext(t *testing.T) {
	// Arrange
	m := NewManager(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool

	// Act
	m.Go(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})

	// Assert
	assert.NoError(t, m.Wait())
	assert.False(t, ran.Load())
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	assert.NoError(t, m.Wait())
}
