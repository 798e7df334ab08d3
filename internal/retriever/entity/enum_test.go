package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeliveryStatus(t *testing.T) {
	code := func(n int) *int { return &n }

	tests := []struct {
		name    string
		status  string
		code    *int
		want    DeliveryStatus
		wantRaw string
	}{
		{name: "missing", want: DeliveryStatusMissing},
		{name: "success name", status: "success", want: DeliveryStatusSuccess, wantRaw: "success"},
		{name: "timeout name", status: "TIMEOUT", want: DeliveryStatusTimeout, wantRaw: "TIMEOUT"},
		{name: "api name", status: "API_NOT_CONNECTED", want: DeliveryStatusAPINotConnected, wantRaw: "API_NOT_CONNECTED"},
		{name: "other name", status: "INTERRUPTED", want: DeliveryStatusOther, wantRaw: "INTERRUPTED"},
		{name: "numeric name", status: "15", want: DeliveryStatusTimeout, wantRaw: "15"},
		{name: "code success", code: code(0), want: DeliveryStatusSuccess, wantRaw: "0"},
		{name: "code api", code: code(17), want: DeliveryStatusAPINotConnected, wantRaw: "17"},
		{name: "code other", code: code(8), want: DeliveryStatusOther, wantRaw: "8"},
		{name: "code wins over name", status: "SUCCESS", code: code(15), want: DeliveryStatusTimeout, wantRaw: "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, raw := NewDeliveryStatus(tt.status, tt.code)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRaw, raw)
		})
	}
}

func TestErrorKind_Text(t *testing.T) {
	for kind, name := range errorKindNames {
		b, err := kind.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(b))

		var back ErrorKind
		require.NoError(t, back.UnmarshalText([]byte(name)))
		assert.Equal(t, kind, back)
	}

	var k ErrorKind
	assert.ErrorIs(t, k.UnmarshalText([]byte("NOPE")), ErrUnknownErrorKind)
	assert.Equal(t, "UNKNOWN_ERROR", ErrorKind(42).String())
}

func TestEvent_JSON(t *testing.T) {
	evt := Event{
		Type:      EventError,
		Error:     &ErrorInfo{Kind: ErrorKindTimeout, Detail: "SMS retrieval timeout"},
		EpisodeID: 42,
	}

	b, err := json.Marshal(evt)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "error",
		"error": {"type": "TIMEOUT", "message": "SMS retrieval timeout"},
		"episode_id": "42",
		"at": "0001-01-01T00:00:00Z"
	}`, string(b))
	assert.EqualError(t, evt.Error, "TIMEOUT: SMS retrieval timeout")
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "IDLE", PhaseIdle.String())
	assert.Equal(t, "LISTENING", PhaseListening.String())
	assert.Equal(t, "SUCCEEDED", PhaseSucceeded.String())
	assert.Equal(t, "FAILED", PhaseFailed.String())
}
