package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

// StartListenerWithTimeout starts an episode, or joins the active one, and
// blocks until it resolves. Failures are *goerror.Error values wrapping an
// *entity.ErrorInfo for a failed episode, entity.ErrListenerStopped when
// stopped, or entity.ErrPendingResult when another caller is already waiting.
// entity.ErrListenerStopped only releases the caller; no error event is
// published for it.
//
// A positive timeout bounds the wait. On expiry the caller detaches and the
// episode keeps running.
func (s *Usecase) StartListenerWithTimeout(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, span := s.startSpan(ctx, "StartListenerWithTimeout")
	defer span.End()

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return "", toGoError(entity.ErrPendingResult)
	}
	p := &pendingResult{done: make(chan outcome, 1)}
	s.pending = p
	s.startLocked(ctx)
	s.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-p.done:
		return out.code, toGoError(out.err)
	case <-expired:
		if out, ok := s.detach(p); ok {
			return out.code, toGoError(out.err)
		}
		return "", toGoError(&entity.ErrorInfo{Kind: entity.ErrorKindTimeout, Detail: "timed out waiting for SMS"})
	case <-ctx.Done():
		if out, ok := s.detach(p); ok {
			return out.code, toGoError(out.err)
		}
		return "", toGoError(ctx.Err())
	}
}

// detach releases the pending slot held by p. An outcome settled in the
// meantime is returned instead of being lost.
func (s *Usecase) detach(p *pendingResult) (outcome, bool) {
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.mu.Unlock()

	select {
	case out := <-p.done:
		return out, true
	default:
		return outcome{}, false
	}
}
