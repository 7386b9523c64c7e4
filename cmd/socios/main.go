package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"socios/internal/backend"
	"socios/internal/cli"
	apphttp "socios/internal/http"
	"socios/internal/middleware/ratelimit"
	"socios/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	res := cli.InitBackend(context.Background(), logger, cfg, backend.ServerProcess)
	if cfg.DataBackend == string(backend.SQLiteBackend) {
		cli.SeedUsers(context.Background(), logger, res.Store, cfg.DataDirectory)
	}

	members := services.NewMemberService(res.Store, res.Publisher(), cfg.RosterCacheTTL)
	deletions := services.NewDeletionService(res.Store, res.Publisher(), logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Members:        members,
		Deletions:      deletions,
		Store:          res.Store,
		Logger:         logger,
		SearchDebounce: cfg.SearchDebounce,
		MetricsEnabled: cfg.MetricsEnabled,
		DevUserID:      cfg.DevUserID,
		RateLimit:      ratelimit.DefaultConfig(),
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		_ = res.Cleanup()
		return
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	go func() {
		logger.Info("Starting socios server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Events != nil,
			"metrics", cfg.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
