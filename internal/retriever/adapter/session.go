package adapter

import (
	"context"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

type usecase interface {
	StartListener(ctx context.Context)
	StopListener(ctx context.Context)
	GetStatus(ctx context.Context) entity.Status
	GetAppHash(ctx context.Context) (string, error)
	StreamEvents(ctx context.Context) <-chan entity.Event
}

type inProcess struct {
	uc usecase
}

// FromUsecase adapts the in-process listener session to Session.
func FromUsecase(uc usecase) Session {
	return inProcess{uc: uc}
}

func (s inProcess) StartListener(ctx context.Context) error {
	s.uc.StartListener(ctx)
	return nil
}

func (s inProcess) StopListener(ctx context.Context) error {
	s.uc.StopListener(ctx)
	return nil
}

func (s inProcess) GetStatus(ctx context.Context) (entity.Status, error) {
	return s.uc.GetStatus(ctx), nil
}

func (s inProcess) GetAppHash(ctx context.Context) (string, error) {
	return s.uc.GetAppHash(ctx)
}

func (s inProcess) Events(ctx context.Context) (<-chan entity.Event, error) {
	return s.uc.StreamEvents(ctx), nil
}
