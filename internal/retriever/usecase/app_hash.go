package usecase

import (
	"context"
	"log/slog"
)

// GetAppHash returns the app hash that SMS messages must end with.
func (s *Usecase) GetAppHash(ctx context.Context) (string, error) {
	ctx, span := s.startSpan(ctx, "GetAppHash")
	defer span.End()

	hash, err := s.platform.AppSignature(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get app signature", "error", err)
		return "", toGoError(err)
	}

	return hash, nil
}
