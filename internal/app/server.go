package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func (a *App) servers() []struct {
	name string
	srv  *http.Server
} {
	return []struct {
		name string
		srv  *http.Server
	}{
		{name: "http", srv: a.httpServer},
		{name: "sse", srv: a.sseServer},
	}
}

// Start launches the HTTP and SSE servers and returns a channel closed once a
// termination signal arrives.
func (a *App) Start() <-chan struct{} {
	for _, s := range a.servers() {
		go func() {
			slog.Info("server listening", "server", s.name, "address", s.srv.Addr)

			if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to listen and serve", "server", s.name, "error", err)
				os.Exit(1)
			}
		}()
	}

	terminateChan := make(chan struct{})
	go func() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-ctx.Done()

		// ends the listener episode, broker consumers and SSE streams
		if a.cancel != nil {
			a.cancel()
		}

		close(terminateChan)

		slog.Info("termination signal received")
	}()

	return terminateChan
}

// Serve runs the HTTP server on l. Tests use it with an ephemeral listener.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop drains the servers and background work, then releases resources in
// closers order.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	for _, s := range a.servers() {
		if err := s.srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown server", "server", s.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "waiting for background jobs to finish")
	if err := a.goroutine.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "background job ended with error", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application gracefully shutdown")
}
