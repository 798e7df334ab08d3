package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViperFromBytes(t *testing.T) {
	// Arrange
	raw := []byte(`
modules:
  retriever:
    enabled: true
    consumer_names: "sms_retrieved_retriever, ,other"
    start_timeout_ms: 1500
    app_hash: "FA+9qCX9VSu"
    signing_cert: "` + base64.StdEncoding.EncodeToString([]byte("cert")) + `"
app:
  server:
    max_goroutine: 16
    http:
      read_timeout_seconds: 5
  tz: "not base64 !"
messaging:
  nsq:
    consumer_config:
      max_attempts: 7
instrument:
  trace_sample_ratio: 0.25
`)

	// Act
	cfg, err := NewViperFromBytes("yaml", raw)

	// Assert
	require.NoError(t, err)
	assert.True(t, cfg.GetBool("modules.retriever.enabled"))
	assert.Equal(t, []string{"sms_retrieved_retriever", "other"}, cfg.GetArray("modules.retriever.consumer_names"))
	assert.Empty(t, cfg.GetArray("modules.retriever.missing"))
	assert.Equal(t, 1500*time.Millisecond, cfg.GetMillisecond("modules.retriever.start_timeout_ms"))
	assert.Equal(t, 5*time.Second, cfg.GetSecond("app.server.http.read_timeout_seconds"))
	assert.Equal(t, "FA+9qCX9VSu", cfg.GetString("modules.retriever.app_hash"))
	assert.Equal(t, []byte("cert"), cfg.GetBinary("modules.retriever.signing_cert"))
	assert.Nil(t, cfg.GetBinary("app.tz"))
	assert.Equal(t, 16, cfg.GetInt("app.server.max_goroutine"))
	assert.Equal(t, uint(16), cfg.GetUint("app.server.max_goroutine"))
	assert.Equal(t, uint16(7), cfg.GetUint16("messaging.nsq.consumer_config.max_attempts"))
	assert.InDelta(t, 0.25, cfg.GetFloat64("instrument.trace_sample_ratio"), 1e-9)
	assert.NoError(t, cfg.Close())
}

func TestNewViperFromBytes_Errors(t *testing.T) {
	_, err := NewViperFromBytes(" ", []byte("a: 1"))
	assert.ErrorIs(t, err, ErrConfigTypeRequired)

	_, err = NewViperFromBytes("yaml", []byte("a: [1"))
	assert.Error(t, err)
}

func TestNewViperFromBytes_EnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("OTPBRIDGE_MODULES_RETRIEVER_APP_HASH", "fromEnv0001")
	cfg, err := NewViperFromBytes("yaml", []byte("modules:\n  retriever:\n    app_hash: fromFile001\n"))
	require.NoError(t, err)

	// Act
	got := cfg.GetString("modules.retriever.app_hash")

	// Assert
	assert.Equal(t, "fromEnv0001", got)
}
