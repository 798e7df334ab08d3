package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"start", "wait", "stop", "status", "hash", "simulate", "watch"} {
		assert.True(t, names[name], "expected subcommand %q to be registered", name)
	}
}

func TestCommands_AgainstServer(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/retriever/app-hash", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test server
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"app_hash": "FA+9qCX9VSu"}})
	})
	mux.HandleFunc("POST /api/v1/retriever/start/wait", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestTimeout)
		//nolint:errcheck // test server
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "timed out waiting for SMS",
			"error":   map[string]string{"type": "TIMEOUT"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{
			name: "hash",
			args: []string{"--server", srv.URL, "--token", "secret", "hash"},
			want: "FA+9qCX9VSu\n",
		},
		{
			name:    "wait timeout",
			args:    []string{"--server", srv.URL, "wait", "--timeout", "1s"},
			wantErr: "TIMEOUT: timed out waiting for SMS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cmd := buildRootCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			// Act
			err := cmd.Execute()

			// Assert
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}

	assert.Equal(t, "Bearer secret", gotAuth)
}
