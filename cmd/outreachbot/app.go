package main

import (
	"context"
	"fmt"

	"outreachbot/internal/config"
	"outreachbot/internal/engine"
	"outreachbot/internal/storage"
	"outreachbot/pkg/logx"
)

// app bundles the pieces every command needs: validated config, the
// logging service and the open store.
type app struct {
	cfg   *config.Config
	logs  *logx.Service
	log   logx.Logger
	store *storage.DB
}

func openApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeout(),
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, logs: logs, log: log, store: store}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logs != nil {
		a.logs.Close()
	}
}

// runSink writes finished-run summaries into the audit table.
type runSink struct {
	db *storage.DB
}

func (s runSink) AppendRun(ctx context.Context, sum engine.Summary) error {
	return s.db.AppendRun(ctx, storage.RunRecord{
		ID:           sum.RunID,
		StartedAt:    sum.Started,
		FinishedAt:   sum.Finished,
		DailyLimit:   sum.DailyLimit,
		DryRun:       sum.DryRun,
		Attempted:    sum.Attempted,
		Succeeded:    sum.Succeeded,
		Failed:       sum.Failed,
		Skipped:      sum.Skipped,
		WouldAttempt: sum.WouldAttempt,
		Reason:       string(sum.Reason),
	})
}
