package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"outreachbot/internal/engine"
	"outreachbot/internal/executor"
	"outreachbot/internal/executor/browser"
	"outreachbot/internal/notify"
	"outreachbot/internal/ratelimit"
	"outreachbot/pkg/logx"
)

var runOutreachCmd = &cobra.Command{
	Use:   "run-outreach",
	Short: "Send connection requests to eligible prospects",
	Long: `Selects eligible prospects, orders them fairly (fewest attempts first,
oldest first), and sends connection requests one at a time with a randomized
delay between actions. The run stops when the daily budget is exhausted, the
candidate list runs out, or the --limit cap is reached.

With --dry-run the full selection, ordering and budget accounting is reported
without opening a browser or writing any prospect or budget state.`,
	RunE: runOutreach,
}

var (
	runLimit   int
	runDryRun  bool
	runMessage string
)

func init() {
	runOutreachCmd.Flags().IntVar(&runLimit, "limit", 0, "Cap actions in this run (0 = daily budget only)")
	runOutreachCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report what would happen without acting")
	runOutreachCmd.Flags().StringVar(&runMessage, "message", "", "Note to attach to connection requests (overrides config)")
	rootCmd.AddCommand(runOutreachCmd)
}

func runOutreach(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := executeRun(ctx, a, runLimit, runDryRun, runMessage)
	if err != nil {
		return err
	}
	if !sum.Reason.Normal() {
		return fmt.Errorf("run %s ended: %s", sum.RunID, sum.Reason)
	}
	return nil
}

// executeRun wires one engine run from an open app. The daemon shares it.
func executeRun(ctx context.Context, a *app, limit int, dryRun bool, message string) (engine.Summary, error) {
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		return engine.Summary{}, err
	}
	if message == "" {
		message = cfg.Message
	}

	limiter, err := buildLimiter(ctx, a, loc, dryRun)
	if err != nil {
		return engine.Summary{}, err
	}

	var exec executor.Executor
	if !dryRun {
		if err := cfg.RequireCredentials(); err != nil {
			return engine.Summary{}, err
		}
		sess, err := browser.New(browser.Config{
			Email:            cfg.Credentials.Email,
			Password:         cfg.Credentials.Password,
			Headless:         cfg.Headless(),
			NavTimeout:       cfg.NavTimeout(),
			ActionsPerMinute: cfg.Browser.ActionsPerMinute,
		}, a.log.With(logx.String("component", "browser")))
		if err != nil {
			return engine.Summary{}, err
		}
		defer sess.Close()
		exec = sess
	}

	eng, err := engine.New(engine.Config{
		DailyLimit:  cfg.Limits.DailyLimit,
		RunLimit:    limit,
		MaxAttempts: cfg.Limits.MaxAttempts,
		MinDelay:    cfg.MinDelay(),
		MaxDelay:    cfg.MaxDelay(),
		DryRun:      dryRun,
		Message:     message,
	}, a.store, runSink{db: a.store}, limiter, exec, a.log)
	if err != nil {
		return engine.Summary{}, err
	}

	sum, runErr := eng.Run(ctx)
	notifyRun(a, sum)
	if runErr != nil {
		return sum, runErr
	}
	return sum, nil
}

// buildLimiter returns the shared daily limiter. Live runs persist the
// consumed counter; dry runs read today's counter once and account
// in memory only.
func buildLimiter(ctx context.Context, a *app, loc *time.Location, dryRun bool) (*ratelimit.Limiter, error) {
	var store ratelimit.BudgetStore = a.store
	if dryRun {
		day := ratelimit.DayKey(time.Now(), loc)
		consumed, err := a.store.ConsumedOn(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("read budget: %w", err)
		}
		mem := ratelimit.NewMemStore()
		mem.Seed(day, consumed)
		store = mem
	}
	return ratelimit.New(ratelimit.Config{
		DailyLimit: a.cfg.Limits.DailyLimit,
		Location:   loc,
		Store:      store,
	})
}

// notifyRun pushes the summary to the configured channel. Best effort.
func notifyRun(a *app, sum engine.Summary) {
	tg := a.cfg.Notify.Telegram
	if !tg.Enabled {
		return
	}
	n, err := notify.NewTelegram(notify.Config{Token: tg.Token, ChatID: tg.ChatID},
		a.log.With(logx.String("component", "notify")))
	if err != nil {
		a.log.Warn("notifier unavailable", logx.Err(err))
		return
	}
	_ = n.RunFinished(sum)
}
