package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	events   chan entity.Event
	hashErr  error
	startErr error
	stopErr  error
	starts   int
	stops    int
	streams  int

	// statusGate, when set, holds GetStatus until it is closed
	statusGate chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan entity.Event, 4)}
}

func (s *fakeSession) StartListener(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.startErr
}

func (s *fakeSession) StopListener(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.stopErr
}

func (s *fakeSession) GetStatus(context.Context) (entity.Status, error) {
	if s.statusGate != nil {
		<-s.statusGate
	}
	return entity.Status{}, nil
}

func (s *fakeSession) GetAppHash(context.Context) (string, error) {
	return "FA+9qCX9VSu", s.hashErr
}

func (s *fakeSession) Events(ctx context.Context) (<-chan entity.Event, error) {
	out := make(chan entity.Event)
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			s.streams--
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-s.events:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *fakeSession) openStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

func (s *fakeSession) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

type recorder struct {
	mu    sync.Mutex
	codes []string
	errs  []entity.ErrorInfo
}

func (r *recorder) options(autoStart bool) Options {
	return Options{
		AutoStart: autoStart,
		OnSuccess: func(code string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.codes = append(r.codes, code)
		},
		OnError: func(info entity.ErrorInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, info)
		},
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes) + len(r.errs)
}

func TestAdapter_AutoStartAndSuccess(t *testing.T) {
	// Arrange
	s := newFakeSession()
	rec := &recorder{}
	a := New(s, rec.options(true))
	ctx := context.Background()
	assert.True(t, a.State().IsLoading)

	// Act
	require.NoError(t, a.Init(ctx))
	listening := a.State()
	s.events <- entity.Event{Type: entity.EventCodeReceived, Code: "482917"}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	// Assert
	assert.True(t, listening.IsListening)
	assert.True(t, listening.IsReady)
	assert.Equal(t, "FA+9qCX9VSu", listening.AppHash)
	require.NotNil(t, listening.Status)

	st := a.State()
	assert.Equal(t, "482917", st.SMSCode)
	assert.False(t, st.IsListening)
	assert.False(t, st.HasError)
	assert.Equal(t, []string{"482917"}, rec.codes)

	starts, _ := s.counts()
	assert.Equal(t, 1, starts)
	require.NoError(t, a.Close(ctx))
}

func TestAdapter_ErrorEvent(t *testing.T) {
	s := newFakeSession()
	rec := &recorder{}
	a := New(s, rec.options(false))
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	s.events <- entity.Event{
		Type:  entity.EventError,
		Error: &entity.ErrorInfo{Kind: entity.ErrorKindTimeout, Detail: "SMS retrieval timeout"},
	}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	st := a.State()
	assert.Equal(t, "TIMEOUT: SMS retrieval timeout", st.Error)
	assert.True(t, st.HasError)
	assert.False(t, st.IsReady)
	assert.Equal(t, entity.ErrorKindTimeout, rec.errs[0].Kind)

	starts, _ := s.counts()
	assert.Equal(t, 0, starts)

	require.NoError(t, a.Reset(ctx))
	st = a.State()
	assert.Empty(t, st.Error)
	assert.True(t, st.IsReady)
	require.NoError(t, a.Close(ctx))
}

func TestAdapter_InitFailure(t *testing.T) {
	s := newFakeSession()
	s.hashErr = errors.New("NO_SIGNATURES")
	a := New(s, Options{AutoStart: true})

	err := a.Init(context.Background())

	assert.Error(t, err)
	st := a.State()
	assert.Equal(t, "Initialization failed: NO_SIGNATURES", st.Error)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsReady)
	starts, _ := s.counts()
	assert.Equal(t, 0, starts)
}

func TestAdapter_StartAndStopFailures(t *testing.T) {
	s := newFakeSession()
	s.startErr = errors.New("unavailable")
	s.stopErr = errors.New("gone")
	a := New(s, Options{})
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	assert.Error(t, a.Start(ctx))
	st := a.State()
	assert.Equal(t, "SMS retrieval failed: unavailable", st.Error)
	assert.False(t, st.IsListening)

	assert.Error(t, a.Stop(ctx))
	assert.Equal(t, "Failed to stop listener: gone", a.State().Error)
}

func TestAdapter_NoCallbackAfterClose(t *testing.T) {
	// Arrange
	s := newFakeSession()
	rec := &recorder{}
	a := New(s, rec.options(false))
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	// Act
	require.NoError(t, a.Close(ctx))
	s.events <- entity.Event{Type: entity.EventCodeReceived, Code: "4821"}
	time.Sleep(20 * time.Millisecond)

	// Assert
	assert.Equal(t, 0, rec.count())
	assert.ErrorIs(t, a.Init(ctx), ErrClosed)
	assert.NoError(t, a.Start(ctx))
	assert.NoError(t, a.Close(ctx))
	starts, stops := s.counts()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 1, stops)
}

func TestAdapter_CloseDuringInit(t *testing.T) {
	// Arrange
	s := newFakeSession()
	s.statusGate = make(chan struct{})
	a := New(s, (&recorder{}).options(false))
	ctx := context.Background()

	initErr := make(chan error, 1)
	go func() { initErr <- a.Init(ctx) }()

	// Act
	require.NoError(t, a.Close(ctx))
	close(s.statusGate)

	// Assert
	select {
	case err := <-initErr:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("init did not return")
	}
	require.Eventually(t, func() bool { return s.openStreams() == 0 }, time.Second, time.Millisecond)
}

func TestAdapter_ReinitReplacesSubscription(t *testing.T) {
	// Arrange
	s := newFakeSession()
	rec := &recorder{}
	a := New(s, rec.options(false))
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	// Act
	require.NoError(t, a.Init(ctx))

	// Assert
	require.Eventually(t, func() bool { return s.openStreams() == 1 }, time.Second, time.Millisecond)
	s.events <- entity.Event{Type: entity.EventCodeReceived, Code: "4821"}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, a.Close(ctx))
	require.Eventually(t, func() bool { return s.openStreams() == 0 }, time.Second, time.Millisecond)
}
