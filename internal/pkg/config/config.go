package config

import (
	"io"
	"time"
)

// DurationConfig reads integer values and scales them into durations.
type DurationConfig interface {
	// GetMillisecond reads key as a whole number of milliseconds.
	GetMillisecond(key string) time.Duration

	// GetSecond reads key as a whole number of seconds.
	GetSecond(key string) time.Duration
}

// NumberConfig reads numeric values. Missing or malformed keys yield zero.
type NumberConfig interface {
	GetInt(key string) int
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetFloat64(key string) float64
}

// Config is the read-only view over runtime configuration used by every
// component. Implementations return zero values for missing keys rather than
// failing, so callers validate what they depend on.
type Config interface {
	io.Closer
	DurationConfig
	NumberConfig

	// GetBool reads key as a bool.
	GetBool(key string) bool

	// GetString reads key as a string.
	GetString(key string) string

	// GetBinary reads key as base64 and returns the decoded bytes, or nil when
	// the value is not valid base64.
	GetBinary(key string) []byte

	// GetArray reads key as a comma separated list. Elements are trimmed and
	// empty elements dropped, so an unset key yields an empty slice.
	GetArray(key string) []string
}
