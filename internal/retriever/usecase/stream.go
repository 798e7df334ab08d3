package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

const streamBuffer = 10

// StreamEvents returns a channel receiving every terminal event until ctx is
// done, at which point the channel is closed. Events are dropped for a
// receiver that falls behind.
func (s *Usecase) StreamEvents(ctx context.Context) <-chan entity.Event {
	ch := make(chan entity.Event, streamBuffer)

	s.streamMu.Lock()
	s.streams[ch] = struct{}{}
	s.streamMu.Unlock()

	context.AfterFunc(ctx, func() {
		s.streamMu.Lock()
		delete(s.streams, ch)
		close(ch)
		s.streamMu.Unlock()
	})

	return ch
}

func (s *Usecase) broadcast(ctx context.Context, evt entity.Event) {
	s.streamMu.RLock()
	defer s.streamMu.RUnlock()

	for ch := range s.streams {
		select {
		case ch <- evt:
		default:
			slog.WarnContext(ctx, "dropping event for slow stream", "episode_id", evt.EpisodeID, "type", evt.Type)
		}
	}
}
