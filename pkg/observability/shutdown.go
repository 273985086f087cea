package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ShutdownFunc releases a resource once the HTTP server has stopped
type ShutdownFunc func(context.Context) error

// Serve runs server until ctx is cancelled, then drains in-flight requests
// within timeout and runs shutdownFuncs in order. A listener failure is
// returned without waiting for ctx.
func Serve(ctx context.Context, logger *Logger, server *http.Server, timeout time.Duration, shutdownFuncs ...ShutdownFunc) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, fmt.Errorf("HTTP server shutdown failed: %w", err))
	}

	for i, fn := range shutdownFuncs {
		if err := fn(shutdownCtx); err != nil {
			logger.WithError(err).Errorf("Shutdown function %d failed", i)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("Graceful shutdown complete")
	return nil
}
