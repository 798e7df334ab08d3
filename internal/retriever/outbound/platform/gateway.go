// Package platform drives the device agent that performs the actual SMS
// interception. Commands travel over the broker; the app hash is derived
// locally from configuration.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/otpbridge/internal/pkg/appsig"
	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
)

type commandPublisher interface {
	PublishRetrieverCommand(ctx context.Context, command string) error
}

type Gateway struct {
	publisher commandPublisher
	appHash   func() (string, error)
}

func NewGateway(publisher commandPublisher, cfg config.Config) *Gateway {
	return &Gateway{
		publisher: publisher,
		appHash: sync.OnceValues(func() (string, error) {
			return resolveAppHash(cfg)
		}),
	}
}

func (g *Gateway) StartListening(ctx context.Context) error {
	return g.publisher.PublishRetrieverCommand(ctx, event.RetrieverCommandStart)
}

// StopListening is best effort; failures are only logged.
func (g *Gateway) StopListening(ctx context.Context) {
	if err := g.publisher.PublishRetrieverCommand(ctx, event.RetrieverCommandStop); err != nil {
		slog.WarnContext(ctx, "failed to send stop command to device agent", "error", err)
	}
}

// AppSignature returns the app hash. It is resolved once per process,
// including when resolution fails.
func (g *Gateway) AppSignature(context.Context) (string, error) {
	return g.appHash()
}

func resolveAppHash(cfg config.Config) (string, error) {
	if hash := cfg.GetString("modules.retriever.app_hash"); hash != "" {
		return hash, nil
	}

	hash, err := appsig.Compute(
		cfg.GetString("modules.retriever.package_name"),
		cfg.GetString("modules.retriever.signing_cert_hex"),
	)
	if errors.Is(err, appsig.ErrInputRequired) {
		return "", entity.ErrNoAppSignature
	}
	if err != nil {
		return "", err
	}

	slog.Info("computed app hash from signing certificate", "app_hash", hash)
	return hash, nil
}
