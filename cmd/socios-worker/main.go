package main

import (
	"context"
	"errors"
	"os"
	"time"

	"socios/internal/backend"
	"socios/internal/cli"
	"socios/internal/services"
	"socios/internal/sheets"
	gsheet "socios/internal/sheets/google"
	"socios/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateWorkerConfig()
	logger.Info("Starting socios-worker")

	res := cli.InitBackend(context.Background(), logger, cfg, backend.WorkerProcess)

	// The worker only reads: events are consumed, never published.
	members := services.NewMemberService(res.Store, nil, cfg.RosterCacheTTL)
	deletions := services.NewDeletionService(res.Store, nil, logger)

	var mirror sheets.RosterMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewMirrorWorker(members, mirror, deletions, worker.MirrorWorkerConfig{
		Debounce:          cfg.MirrorDebounce,
		ReconcileInterval: cfg.ReconcileInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Worker stop error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start mirror worker", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := res.Events.ConsumeEvents(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
