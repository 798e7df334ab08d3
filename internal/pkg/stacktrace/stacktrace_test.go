package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	// Arrange
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/otpbridge/internal/retriever/usecase.(*Usecase).completeStart(0xc000)
	/src/otpbridge/internal/retriever/usecase/start.go:88 +0x1a5
github.com/shandysiswandi/otpbridge/internal/pkg/goroutine.(*Manager).Go.func1()
	/src/otpbridge/internal/pkg/goroutine/goroutine.go:61
`)

	// Act
	got := InternalPaths(stack)

	// Assert
	assert.Equal(t, []string{
		"internal/retriever/usecase/start.go:88",
		"internal/pkg/goroutine/goroutine.go:61",
	}, got)
}

func TestInternalPaths_None(t *testing.T) {
	assert.Empty(t, InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/src/main.go:5 +0x1\n")))
	assert.Empty(t, InternalPaths(nil))
}
