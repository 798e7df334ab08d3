package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_Generate(t *testing.T) {
	var gen StringID = NewUUID()

	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
}

func TestSnowflake_Generate(t *testing.T) {
	// Arrange
	sf, err := NewSnowflake(1)
	require.NoError(t, err)
	var gen NumberID = sf

	// Act
	prev := gen.Generate()
	for range 100 {
		next := gen.Generate()

		// Assert
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNewSnowflake_InvalidNode(t *testing.T) {
	_, err := NewSnowflake(1 << 12)
	assert.Error(t, err)
}
