package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/otpbridge/internal/pkg/clock"
	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/instrument"
	"github.com/shandysiswandi/otpbridge/internal/pkg/otp"
	"github.com/shandysiswandi/otpbridge/internal/pkg/uid"
	"github.com/shandysiswandi/otpbridge/internal/pkg/validator"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

type SMSRetrievedEvent struct {
	ID         string
	Message    *string
	Status     string
	StatusCode *int
}

type repoMessaging interface {
	PublishSMSRetrieved(ctx context.Context, msg SMSRetrievedEvent) error
}

type platform interface {
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context)
	AppSignature(ctx context.Context) (string, error)
}

type deliveryNotifier interface {
	Subscribe(fn entity.DeliveryFunc) (unsubscribe func() error, err error)
}

type runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error) bool
}

type outcome struct {
	code string
	err  error
}

// pendingResult is the single outstanding promise of an episode.
type pendingResult struct {
	done chan outcome
}

// Usecase is the listener session. One instance serves the whole process.
type Usecase struct {
	platform      platform
	notifier      deliveryNotifier
	repoMessaging repoMessaging
	goroutine     runner
	validator     validator.Validator
	cfg           config.Config
	uid           uid.NumberID
	uuid          uid.StringID
	totp          otp.Source
	clock         clock.Clocker
	ins           instrument.Instrumentation
	episodes      metric.Int64Counter

	mu          sync.Mutex
	phase       entity.Phase
	registered  bool
	starting    bool
	gen         uint64
	episodeID   int64
	unsubscribe func() error
	pending     *pendingResult

	streamMu sync.RWMutex
	streams  map[chan entity.Event]struct{}
}

type Dependency struct {
	Platform      platform
	Notifier      deliveryNotifier
	RepoMessaging repoMessaging
	Goroutine     runner
	Validator     validator.Validator
	Config        config.Config
	UID           uid.NumberID
	UUID          uid.StringID
	Totp          otp.Source
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		platform:      dep.Platform,
		notifier:      dep.Notifier,
		repoMessaging: dep.RepoMessaging,
		goroutine:     dep.Goroutine,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uid:           dep.UID,
		uuid:          dep.UUID,
		totp:          dep.Totp,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		streams:       make(map[chan entity.Event]struct{}),
	}

	counter, err := s.ins.Meter("retriever.usecase").Int64Counter(
		"otp.retriever.episodes",
		metric.WithDescription("Finished listener episodes by outcome"),
	)
	if err != nil {
		slog.Warn("failed to create episodes counter", "error", err)
		counter = noop.Int64Counter{}
	}
	s.episodes = counter

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("retriever.usecase").Start(ctx, name)
}
