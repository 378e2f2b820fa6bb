package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"resc/internal/pkg/logx"
)

// shutdownTimeout bounds the graceful shutdown of the admin HTTP server.
const shutdownTimeout = 5 * time.Second

// ListenAndServe runs the admin HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully. Requests inherit ctx, so WebSocket sessions end with the process.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info("Admin HTTP server starting", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logx.Info("Shutting down admin HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh

	logx.Info("Admin HTTP server stopped.")
	return nil
}
