package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StartListener begins an episode without waiting for its outcome. It is a
// no-op while a listener is active or a start is in flight.
func (s *Usecase) StartListener(ctx context.Context) {
	ctx, span := s.startSpan(ctx, "StartListener")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)
}

// StopListener ends the current episode, if any, without emitting an event.
// A waiting caller receives entity.ErrListenerStopped. It never fails.
func (s *Usecase) StopListener(ctx context.Context) {
	ctx, span := s.startSpan(ctx, "StopListener")
	defer span.End()

	s.mu.Lock()
	s.gen++
	s.unsubscribeLocked(ctx)
	s.registered = false
	s.starting = false
	s.phase = entity.PhaseIdle
	if s.pending != nil {
		s.pending.done <- outcome{err: entity.ErrListenerStopped}
		s.pending = nil
	}
	episodeID := s.episodeID
	s.mu.Unlock()

	s.platform.StopListening(ctx)
	slog.InfoContext(ctx, "sms listener stopped", "episode_id", episodeID)
}

// GetStatus reports whether a listener is active and registered.
func (s *Usecase) GetStatus(ctx context.Context) entity.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return entity.Status{
		IsListening:  s.phase == entity.PhaseListening,
		IsRegistered: s.registered,
	}
}

func (s *Usecase) startLocked(ctx context.Context) {
	if s.phase == entity.PhaseListening || s.starting {
		slog.WarnContext(ctx, "sms listener already active", "episode_id", s.episodeID)
		return
	}

	s.gen++
	gen := s.gen
	s.starting = true
	s.episodeID = s.uid.Generate()

	bg := entity.WithEpisode(context.WithoutCancel(ctx), s.episodeID)
	accepted := s.goroutine.Go(bg, func(ctx context.Context) error {
		s.completeStart(ctx, gen)
		return nil
	})
	if !accepted {
		s.finishLocked(ctx, failure(entity.ErrorKindServiceUnavailable,
			"Failed to start SMS Retriever: no capacity to start listener"))
		return
	}

	slog.InfoContext(ctx, "sms listener starting", "episode_id", s.episodeID)
}

func (s *Usecase) completeStart(ctx context.Context, gen uint64) {
	startErr := s.platform.StartListening(ctx)

	s.mu.Lock()
	if gen != s.gen {
		idle := !s.starting && s.phase != entity.PhaseListening
		s.mu.Unlock()

		slog.WarnContext(ctx, "discarding listener start that completed after stop")
		if startErr == nil && idle {
			s.platform.StopListening(ctx)
		}
		return
	}

	s.starting = false
	if startErr != nil {
		slog.ErrorContext(ctx, "failed to start sms retriever", "error", startErr)
		s.finishLocked(ctx, failure(entity.ErrorKindServiceUnavailable, "Failed to start SMS Retriever: "+startErr.Error()))
		s.mu.Unlock()
		return
	}

	unsubscribe, err := s.notifier.Subscribe(func(ctx context.Context, d entity.Delivery) {
		s.handleDelivery(ctx, gen, d)
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to register sms receiver", "error", err)
		s.finishLocked(ctx, failure(entity.ErrorKindUnknown, "Failed to register SMS receiver: "+err.Error()))
		s.mu.Unlock()

		s.platform.StopListening(ctx)
		return
	}

	s.unsubscribe = unsubscribe
	s.registered = true
	s.phase = entity.PhaseListening
	s.mu.Unlock()

	slog.InfoContext(ctx, "sms listener registered")
}

func (s *Usecase) handleDelivery(ctx context.Context, gen uint64, d entity.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registered || gen != s.gen {
		slog.WarnContext(ctx, "dropping sms delivery, listener is not registered")
		return
	}

	s.finishLocked(ctx, classify(d))
}

// finishLocked performs the single terminal transition of an episode.
func (s *Usecase) finishLocked(ctx context.Context, evt entity.Event) {
	s.unsubscribeLocked(ctx)
	s.registered = false
	s.starting = false

	evt.EpisodeID = s.episodeID
	evt.At = s.clock.Now()

	result := "success"
	out := outcome{code: evt.Code}
	s.phase = entity.PhaseSucceeded
	if evt.Error != nil {
		result = evt.Error.Kind.String()
		out = outcome{err: evt.Error}
		s.phase = entity.PhaseFailed
	}

	if s.pending != nil {
		s.pending.done <- out
		s.pending = nil
	}
	s.broadcast(ctx, evt)
	s.episodes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result)))

	if evt.Error != nil {
		slog.WarnContext(ctx, "sms listener failed", "episode_id", evt.EpisodeID, "kind", result, "detail", evt.Error.Detail)
	} else {
		slog.InfoContext(ctx, "sms code received", "episode_id", evt.EpisodeID)
	}

	s.phase = entity.PhaseIdle
}

func (s *Usecase) unsubscribeLocked(ctx context.Context) {
	if s.unsubscribe == nil {
		return
	}
	if err := s.unsubscribe(); err != nil {
		slog.WarnContext(ctx, "failed to unsubscribe sms receiver", "error", err)
	}
	s.unsubscribe = nil
}
