package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitRequest struct {
	TimeoutMs int    `validate:"gte=0,lte=600000"`
	PackageID string `validate:"omitempty,hostname_rfc1123"`
}

type simulateRequest struct {
	Code    string `validate:"omitempty,otpcode"`
	AppHash string `validate:"omitempty,apphash"`
}

func TestV10Validator_Validate(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    any
		wantErr map[string]string
	}{
		{name: "valid wait", data: waitRequest{TimeoutMs: 5000}},
		{
			name:    "negative timeout",
			data:    waitRequest{TimeoutMs: -1},
			wantErr: map[string]string{"timeout_ms": "TimeoutMs must be 0 or greater"},
		},
		{name: "valid simulate", data: simulateRequest{Code: "482917", AppHash: "FA+9qCX9VSu"}},
		{name: "empty simulate", data: simulateRequest{}},
		{
			name: "bad code and hash",
			data: simulateRequest{Code: "12a4", AppHash: "short"},
			wantErr: map[string]string{
				"code":     "Code must be 4-8 digits",
				"app_hash": "AppHash must be an 11 character app hash",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			err := v.Validate(tt.data)

			// Assert
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var verr V10ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Values())
			assert.NotEqual(t, "validation error", verr.Error())
		})
	}
}

func TestV10Validator_NonStruct(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate("not a struct")
	assert.Error(t, err)

	var verr V10ValidationError
	assert.NotErrorAs(t, err, &verr)
}

func TestV10ValidationError_Empty(t *testing.T) {
	assert.Equal(t, "validation error", V10ValidationError{}.Error())
}
