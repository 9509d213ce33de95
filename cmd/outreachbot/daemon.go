package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"outreachbot/internal/config"
	"outreachbot/pkg/logx"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run outreach on a schedule",
	Long: `Stays resident and starts an outreach run on the given cron schedule,
in the configured timezone. Overlapping runs are never started: a tick that
fires while a run is in progress is skipped. The config file is watched and
logging changes apply without a restart.`,
	RunE: runDaemon,
}

var (
	daemonSchedule string
	daemonLimit    int
)

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "0 9 * * *", "Cron schedule for runs")
	daemonCmd.Flags().IntVar(&daemonLimit, "limit", 0, "Per-run action cap (0 = daily budget only)")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hot reload: logging level changes apply live; other changes are
	// picked up by the next run through mgr.Get.
	mgr := config.NewManager(cfgPath, a.log.With(logx.String("component", "config")))
	if _, err := mgr.Load(); err != nil {
		return err
	}
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		if err := mgr.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		for cfg := range updates {
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.ConsoleLogging(),
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("configuration reloaded")
		}
	}()

	var running sync.Mutex
	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(daemonSchedule, func() {
		if !running.TryLock() {
			a.log.Warn("previous run still in progress, skipping tick")
			return
		}
		defer running.Unlock()

		a.cfg = mgr.Get()
		sum, err := executeRun(ctx, a, daemonLimit, false, "")
		if err != nil {
			a.log.Error("scheduled run failed", logx.Err(err))
			return
		}
		a.log.Info("scheduled run done",
			logx.String("run_id", sum.RunID),
			logx.String("reason", string(sum.Reason)))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", daemonSchedule, err)
	}

	a.log.Info("daemon started",
		logx.String("schedule", daemonSchedule),
		logx.String("timezone", loc.String()))
	c.Start()
	<-ctx.Done()

	// Let an in-progress run finish before exiting.
	stopCtx := c.Stop()
	<-stopCtx.Done()
	running.Lock()
	running.Unlock()
	a.log.Info("daemon stopped")
	return nil
}
