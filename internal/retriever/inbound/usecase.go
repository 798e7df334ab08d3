package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/retriever/usecase"
)

type ucStream interface {
	StreamEvents(ctx context.Context) <-chan entity.Event
}

type uc interface {
	ucStream

	StartListener(ctx context.Context)
	StartListenerWithTimeout(ctx context.Context, timeout time.Duration) (string, error)
	StopListener(ctx context.Context)
	GetStatus(ctx context.Context) entity.Status
	GetAppHash(ctx context.Context) (string, error)
	Simulate(ctx context.Context, in usecase.SimulateInput) (*usecase.SimulateOutput, error)
}

// dispatcher hands a delivery to the registered listener, if any.
type dispatcher interface {
	Dispatch(ctx context.Context, d entity.Delivery) bool
}
