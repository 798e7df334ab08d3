package retriever

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/pkg/clock"
	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/messaging"
	"github.com/shandysiswandi/otpbridge/internal/pkg/otp"
	"github.com/shandysiswandi/otpbridge/internal/pkg/router"
	"github.com/shandysiswandi/otpbridge/internal/pkg/uid"
	"github.com/shandysiswandi/otpbridge/internal/pkg/validator"
	"github.com/shandysiswandi/otpbridge/internal/retriever/client"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moduleConfig = `
app:
  server:
    auth_token: "secret"
modules:
  retriever:
    enabled: true
    consumer_names: "sms_retrieved_retriever"
    app_hash: "FA+9qCX9VSu"
    wait_timeout_ms: 5000
    simulator:
      enabled: true
`

type waitResult struct {
	code string
	err  error
}

func newModuleServer(t *testing.T) (*client.Client, string) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(moduleConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)
	snow, err := uid.NewSnowflake(1)
	require.NoError(t, err)
	totp, err := otp.NewTOTP("otpbridge", "", 30, 6)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	broker := messaging.NewMemory()
	ins := instrument.NewNoop()
	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), Instrument: ins})

	require.NoError(t, New(Dependency{
		Ctx:        ctx,
		Goroutine:  goroutine.NewManager(8),
		Router:     r,
		Messaging:  broker,
		Config:     cfg,
		Instrument: ins,
		UID:        snow,
		UUID:       uid.NewUUID(),
		Clock:      clock.New(),
		Totp:       totp,
		Validator:  v,
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		//nolint:errcheck // memory broker close never fails
		_ = broker.Close()
	})

	return client.New(srv.URL, "secret"), srv.URL
}

func TestNew_ValidatesDependency(t *testing.T) {
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	err = New(Dependency{Validator: v})

	assert.Error(t, err)
}

func TestModule_SimulatedDeliveryResolvesWaiter(t *testing.T) {
	// Arrange
	c, _ := newModuleServer(t)
	ctx := context.Background()

	hash, err := c.GetAppHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FA+9qCX9VSu", hash)

	done := make(chan waitResult, 1)
	go func() {
		code, err := c.StartAndWait(ctx, 5*time.Second)
		done <- waitResult{code: code, err: err}
	}()

	// Act
	// the consumer joins the broker asynchronously, so keep simulating until
	// one delivery lands on the registered listener
	var got waitResult
	require.Eventually(t, func() bool {
		select {
		case got = <-done:
			return true
		default:
		}
		//nolint:errcheck // a rejected simulation is retried on the next tick
		_, _ = c.Simulate(ctx, client.SimulateRequest{Code: "482917"})
		return false
	}, 5*time.Second, 50*time.Millisecond)

	// Assert
	require.NoError(t, got.err)
	assert.Equal(t, "482917", got.code)

	st, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.Status{}, st)
}

func TestModule_StopAbandonsWaiter(t *testing.T) {
	// Arrange
	c, _ := newModuleServer(t)
	ctx := context.Background()

	done := make(chan waitResult, 1)
	go func() {
		code, err := c.StartAndWait(ctx, 5*time.Second)
		done <- waitResult{code: code, err: err}
	}()
	require.Eventually(t, func() bool {
		st, err := c.GetStatus(ctx)
		return err == nil && st.IsListening
	}, 2*time.Second, 20*time.Millisecond)

	// Act
	require.NoError(t, c.StopListener(ctx))

	// Assert
	select {
	case got := <-done:
		var apiErr *client.APIError
		require.True(t, errors.As(got.err, &apiErr))
		assert.Equal(t, 409, apiErr.StatusCode)
	case <-time.After(3 * time.Second):
		t.Fatal("waiter was not released by stop")
	}
}

func TestModule_RequiresToken(t *testing.T) {
	_, url := newModuleServer(t)
	anon := client.New(url, "")

	err := anon.StartListener(context.Background())

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
}
