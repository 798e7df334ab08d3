package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 test secret "12345678901234567890" in base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTP_Code(t *testing.T) {
	// Arrange
	src, err := NewTOTP("otpbridge", rfcSecret, 30, 8)
	require.NoError(t, err)

	// Act
	code, err := src.Code(time.Unix(59, 0).UTC())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)
}

func TestTOTP_GeneratedSecret(t *testing.T) {
	// Arrange
	src, err := NewTOTP("otpbridge", "", 0, 7)
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Act
	code, err := src.Code(now)

	// Assert
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, src.Verify(code, now))
	assert.True(t, src.Verify(code, now.Add(30*time.Second)))
	assert.False(t, src.Verify(code, now.Add(5*time.Minute)))
	assert.False(t, src.Verify("abc", now))
}

func TestTOTP_NoSecret(t *testing.T) {
	var src TOTP

	_, err := src.Code(time.Now())

	assert.ErrorIs(t, err, ErrSecretRequired)
}
