// Package cli holds the start-up and shutdown steps shared by the
// wealthplanner, ledger-worker and maintenance-worker binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wealthplanner/internal/config"
	"wealthplanner/internal/log"
)

// ShutdownTimeout bounds how long in-flight work may take after a signal.
const ShutdownTimeout = 30 * time.Second

// SetupLogger installs a text logger at level as the process default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the config and exits when validate rejects it.
// A nil validate uses Config.Validate.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// Task is a long-running piece of a binary. It must return once ctx is done.
type Task func(ctx context.Context) error

// Run runs every task until one fails or ctx is cancelled, then waits for all
// of them. Context cancellation is not reported as an error.
func Run(ctx context.Context, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(gctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ServeTask serves srv until ctx is done, then shuts it down gracefully.
func ServeTask(logger *log.Logger, srv *http.Server) Task {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve: %w", err)
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	}
}

// TickerTask calls fn every interval until ctx is done. Errors from fn are
// logged and do not stop the loop.
func TickerTask(logger *log.Logger, name string, interval time.Duration, fn func(context.Context) error) Task {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					logger.ErrorContext(ctx, "Periodic task failed", "task", name, log.FieldError, err)
				}
			}
		}
	}
}
