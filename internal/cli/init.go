// Package cli provides common CLI initialization utilities shared by
// cmd/socios and cmd/socios-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"socios/internal/backend"
	"socios/internal/config"
	applog "socios/internal/log"
	"socios/internal/ports"
	"socios/internal/storage/memory"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and sets
// it as the default logger.
func SetupLogger(level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, sets up logging and validates it
// for the server. Exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *applog.Logger) {
	return loadConfig((*config.Config).Validate)
}

// LoadAndValidateWorkerConfig is LoadAndValidateConfig with the worker's
// additional requirements.
func LoadAndValidateWorkerConfig() (*config.Config, *applog.Logger) {
	return loadConfig((*config.Config).ValidateWorker)
}

func loadConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend creates the configured store and the AMQP client, which is
// optional for the server and required for the worker. Exits the process on
// failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config, process backend.Process) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg, process)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// SeedUsers upserts the users listed in dir/seed_users.txt. It returns how
// many were written.
func SeedUsers(ctx context.Context, logger *applog.Logger, store ports.UserStore, dir string) int {
	n := 0
	for _, u := range memory.SeedUsers(dir) {
		if err := store.SaveUser(ctx, u); err != nil {
			logger.Warn("Failed to seed user", "user_id", u.ID, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		logger.Info("Seeded users", "count", n, "data_directory", dir)
	}
	return n
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
