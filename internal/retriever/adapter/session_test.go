package adapter

import (
	"context"
	"testing"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsecase struct {
	started, stopped int
	events           chan entity.Event
}

func (u *stubUsecase) StartListener(context.Context) { u.started++ }
func (u *stubUsecase) StopListener(context.Context)  { u.stopped++ }

func (u *stubUsecase) GetStatus(context.Context) entity.Status {
	return entity.Status{IsListening: u.started > u.stopped}
}

func (u *stubUsecase) GetAppHash(context.Context) (string, error) { return "FA+9qCX9VSu", nil }

func (u *stubUsecase) StreamEvents(context.Context) <-chan entity.Event { return u.events }

func TestFromUsecase(t *testing.T) {
	uc := &stubUsecase{events: make(chan entity.Event)}
	s := FromUsecase(uc)
	ctx := context.Background()

	require.NoError(t, s.StartListener(ctx))
	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsListening)

	require.NoError(t, s.StopListener(ctx))
	hash, err := s.GetAppHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FA+9qCX9VSu", hash)

	events, err := s.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, (<-chan entity.Event)(uc.events), events)
}
