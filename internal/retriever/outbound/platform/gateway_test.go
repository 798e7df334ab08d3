package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/otpbridge/internal/pkg/appsig"
	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/shandysiswandi/otpbridge/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	commands []string
	err      error
}

func (p *recordingPublisher) PublishRetrieverCommand(_ context.Context, command string) error {
	p.commands = append(p.commands, command)
	return p.err
}

func newConfig(t *testing.T, yaml string) config.Config {
	t.Helper()
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestGateway_Commands(t *testing.T) {
	pub := &recordingPublisher{}
	g := NewGateway(pub, newConfig(t, ""))
	ctx := context.Background()

	require.NoError(t, g.StartListening(ctx))
	g.StopListening(ctx)

	pub.err = errors.New("broker down")
	assert.EqualError(t, g.StartListening(ctx), "broker down")
	assert.NotPanics(t, func() { g.StopListening(ctx) })

	assert.Equal(t, []string{
		event.RetrieverCommandStart,
		event.RetrieverCommandStop,
		event.RetrieverCommandStart,
		event.RetrieverCommandStop,
	}, pub.commands)
}

func TestGateway_AppSignature(t *testing.T) {
	want, err := appsig.Compute("com.example.app", "3082030d308201f5a003020102")
	require.NoError(t, err)

	tests := []struct {
		name    string
		yaml    string
		want    string
		wantErr error
	}{
		{
			name: "preconfigured hash wins",
			yaml: "modules:\n  retriever:\n    app_hash: FA+9qCX9VSu\n    package_name: com.example.app\n    signing_cert_hex: \"3082030d308201f5a003020102\"\n",
			want: "FA+9qCX9VSu",
		},
		{
			name: "computed from certificate",
			yaml: "modules:\n  retriever:\n    package_name: com.example.app\n    signing_cert_hex: \"3082030d308201f5a003020102\"\n",
			want: want,
		},
		{
			name:    "no inputs",
			yaml:    "",
			wantErr: entity.ErrNoAppSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(&recordingPublisher{}, newConfig(t, tt.yaml))

			got, err := g.AppSignature(context.Background())
			again, errAgain := g.AppSignature(context.Background())

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, again)
			assert.Equal(t, err, errAgain)
		})
	}
}
