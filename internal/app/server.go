package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start serves HTTP in the background. The returned channel is closed once a
// termination signal arrives.
func (a *App) Start() <-chan struct{} {
	terminate := make(chan struct{})

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)

		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-ctx.Done()
		slog.Info("termination signal received")
		close(terminate)
	}()

	return terminate
}

// Stop drains the server first so no new upload can start, then cancels
// in-flight loads, waits for them and releases the remaining resources.
func (a *App) Stop(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "HTTP Server", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	slog.InfoContext(ctx, "waiting for table loads to finish")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background tasks reported errors", "error", err)
	}

	for name, closer := range a.closerFn {
		if name == "HTTP Server" {
			continue
		}
		if err := closer(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application gracefully shutdown")
}
