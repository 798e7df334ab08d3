package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, mask ...string) *slog.Logger {
	return slog.New(newHandler("otpbridge-test", mask, newJSONHandler(buf, slog.LevelDebug)))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger_MasksFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := newTestLogger(&buf, " Message ", "authorization")

	// Act
	log.Info("delivery received",
		"message", "<#> Your code is 482917",
		"body", `{"id":"1","message":"Your code is 482917"}`,
		"headers", map[string]string{"Authorization": "Bearer x", "Accept": "*/*"},
		"status", "SUCCESS",
	)

	// Assert
	line := decodeLine(t, &buf)
	assert.Equal(t, masked, line["message"])
	assert.JSONEq(t, `{"id":"1","message":"***"}`, line["body"].(string))
	assert.Equal(t, map[string]any{"Authorization": masked, "Accept": "*/*"}, line["headers"])
	assert.Equal(t, "SUCCESS", line["status"])
	assert.Equal(t, "otpbridge-test", line["service"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Contains(t, line, "ts")
}

func TestLogger_CorrelationID(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := newTestLogger(&buf).With("module", "retriever")
	ctx := SetCorrelationID(context.Background(), "cid-123")

	// Act
	log.InfoContext(ctx, "listening")

	// Assert
	line := decodeLine(t, &buf)
	assert.Equal(t, "cid-123", line["_cID"])
	assert.Equal(t, "retriever", line["module"])
}

func TestLogger_Fanout(t *testing.T) {
	// Arrange
	var a, b bytes.Buffer
	log := slog.New(newHandler("svc", nil,
		newJSONHandler(&a, slog.LevelInfo),
		newJSONHandler(&b, slog.LevelError),
	))

	// Act
	log.Info("only a")

	// Assert
	assert.NotEmpty(t, a.String())
	assert.Empty(t, b.String())
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func TestNewNoop(t *testing.T) {
	ins, err := New(context.Background(), nil)
	require.NoError(t, err)

	_, span := ins.Tracer("t").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
