// Package main provides otpctl, a command line client for a running
// otpbridge server.
//
// # Basic Usage
//
// Wait for one code:
//
//	otpctl wait --timeout 2m
//
// Follow every outcome until interrupted:
//
//	otpctl watch --auto-start
//
// # Environment Variables
//
//   - OTPCTL_SERVER: base URL of the server (default: http://localhost:8080)
//   - OTPCTL_TOKEN: bearer token matching app.server.auth_token
package main

import (
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
