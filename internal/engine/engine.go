// Package engine implements the outreach run controller: one bounded,
// serial pass that selects eligible prospects, paces actions inside the
// daily budget, and records every outcome durably before moving on.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"outreachbot/internal/executor"
	"outreachbot/internal/pacing"
	"outreachbot/internal/prospect"
	"outreachbot/internal/ratelimit"
	"outreachbot/pkg/logx"
)

// Engine drives one run at a time. It is not safe for concurrent Run calls;
// the daily budget in the limiter is the only state shared across runs.
type Engine struct {
	cfg     Config
	store   ProspectStore
	runs    RunSink
	limiter *ratelimit.Limiter
	exec    executor.Executor
	log     logx.Logger

	// Injectable for tests.
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newRunID func() string
	rng      *rand.Rand
}

// Option tweaks engine internals; used by tests and the daemon.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep overrides the pacing wait (tests run without real delays).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithRand injects the pacing random source so delay sequences are
// reproducible under a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// New validates configuration and dependencies up front; anything wrong
// here is a configuration error and aborts before any state mutation.
func New(cfg Config, store ProspectStore, runs RunSink, limiter *ratelimit.Limiter, exec executor.Executor, log logx.Logger, opts ...Option) (*Engine, error) {
	if cfg.DailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be > 0 (got %d)", cfg.DailyLimit)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}
	if cfg.MinDelay < 0 || cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("invalid delay range [%s, %s]", cfg.MinDelay, cfg.MaxDelay)
	}
	if store == nil {
		return nil, fmt.Errorf("prospect store is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if exec == nil && !cfg.DryRun {
		return nil, fmt.Errorf("action executor is required for a real run")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	e := &Engine{
		cfg:      cfg,
		store:    store,
		runs:     runs,
		limiter:  limiter,
		exec:     exec,
		log:      log,
		now:      time.Now,
		sleep:    sleepCtx,
		newRunID: uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.now().UnixNano()))
	}
	return e, nil
}

// Run executes one pass: Initializing -> Running -> Completed|Aborted.
// The returned error is non-nil only when the run aborted.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	sum := Summary{
		RunID:      e.newRunID(),
		Started:    e.now(),
		DailyLimit: e.cfg.DailyLimit,
		DryRun:     e.cfg.DryRun,
	}
	log := e.log.With(logx.String("run_id", sum.RunID), logx.Bool("dry_run", e.cfg.DryRun))

	// Initializing: the executor must be able to act before anything moves.
	if !e.cfg.DryRun {
		if err := e.exec.Ready(ctx); err != nil {
			return e.finish(ctx, log, sum, ReasonAborted, fmt.Errorf("executor not ready: %w", err))
		}
	}

	candidates, err := e.store.FindEligible(ctx, e.cfg.MaxAttempts, 0)
	if err != nil {
		return e.finish(ctx, log, sum, ReasonAborted, Fatal(fmt.Errorf("find eligible: %w", err)))
	}
	sum.Eligible = len(candidates)
	log.Info("run starting", logx.Int("eligible", len(candidates)), logx.Int("daily_limit", e.cfg.DailyLimit))
	if len(candidates) == 0 {
		return e.finish(ctx, log, sum, ReasonNoEligibleProspects, nil)
	}

	// Selected discoveries enter the queue durably so an interrupted run
	// leaves an accurate picture of what was in flight. Dry runs mutate
	// nothing.
	if !e.cfg.DryRun {
		for i := range candidates {
			if candidates[i].Status != prospect.StatusDiscovered {
				continue
			}
			if err := candidates[i].Transition(prospect.StatusQueued); err != nil {
				return e.finish(ctx, log, sum, ReasonAborted, Fatal(err))
			}
			if err := e.store.SaveProspect(ctx, &candidates[i]); err != nil {
				return e.finish(ctx, log, sum, ReasonAborted, Fatal(err))
			}
		}
	}

	sched := pacing.New(candidates, e.cfg.MinDelay, e.cfg.MaxDelay, e.rng)

	for {
		// Abort is polled between steps, never mid-action.
		if ctx.Err() != nil {
			return e.finish(ctx, log, sum, ReasonAborted, fmt.Errorf("run interrupted: %w", ctx.Err()))
		}
		if e.cfg.RunLimit > 0 && sum.Attempted+sum.WouldAttempt >= e.cfg.RunLimit {
			return e.finish(ctx, log, sum, ReasonCompletedNormally, nil)
		}

		step, ok := sched.Next()
		if !ok {
			return e.finish(ctx, log, sum, ReasonNoEligibleProspects, nil)
		}

		granted, err := e.limiter.Reserve(ctx, 1)
		if err != nil {
			return e.finish(ctx, log, sum, ReasonAborted, Fatal(err))
		}
		if granted == 0 {
			return e.finish(ctx, log, sum, ReasonBudgetExhausted, nil)
		}

		if e.cfg.DryRun {
			log.Info("would wait", logx.Duration("delay", step.Delay), logx.String("prospect", step.Prospect.URL))
		} else {
			log.Debug("pacing", logx.Duration("delay", step.Delay), logx.String("prospect", step.Prospect.URL))
			if err := e.sleep(ctx, step.Delay); err != nil {
				return e.finish(ctx, log, sum, ReasonAborted, fmt.Errorf("run interrupted: %w", err))
			}
		}

		if e.cfg.DryRun {
			sum.WouldAttempt++
			log.Info("would send connection request", logx.String("prospect", step.Prospect.URL))
			if err := e.limiter.RecordConsumed(ctx, 1); err != nil {
				return e.finish(ctx, log, sum, ReasonAborted, Fatal(err))
			}
			continue
		}

		if done, err := e.actOn(ctx, log, &sum, step.Prospect); done {
			return sum, err
		}
	}
}

// actOn performs one real action and persists its outcome. It returns
// done=true only when the run must stop (fatal persistence failure).
func (e *Engine) actOn(ctx context.Context, log logx.Logger, sum *Summary, p prospect.Prospect) (bool, error) {
	if err := p.Transition(prospect.StatusConnecting); err != nil {
		// Should be unreachable for store-selected candidates; skip the
		// prospect without consuming its grant.
		log.Error("illegal candidate state", logx.String("prospect", p.URL), logx.Err(err))
		return false, nil
	}
	// An in-flight action always completes and its outcome is persisted,
	// even if the operator aborts meanwhile; cancellation is only observed
	// between steps.
	actx := context.WithoutCancel(ctx)

	// Persisting Connecting before the action means a crash mid-action
	// leaves evidence that an attempt may have gone out.
	if err := e.store.SaveProspect(actx, &p); err != nil {
		fin, ferr := e.finish(ctx, log, *sum, ReasonAborted, Fatal(err))
		*sum = fin
		return true, ferr
	}

	sum.Attempted++
	actionErr := e.exec.SendInvite(actx, p, e.cfg.Message)
	now := e.now()
	if actionErr == nil {
		p.RecordSuccess(now)
		sum.Succeeded++
		log.Info("connection request sent", logx.String("prospect", p.URL))
	} else {
		p.RecordFailure(now, actionErr.Error(), e.cfg.MaxAttempts)
		sum.Failed++
		if p.Status == prospect.StatusSkipped {
			sum.Skipped++
		}
		log.Warn("connection request failed",
			logx.String("prospect", p.URL),
			logx.Int("attempts", p.Attempts),
			logx.String("status", string(p.Status)),
			logx.Err(actionErr))
	}

	// Success and failure both consume budget. The prospect outcome is
	// persisted even if the budget write fails, so an already-performed
	// action is never lost; either failure aborts the run.
	consumeErr := e.limiter.RecordConsumed(actx, 1)
	if err := e.store.SaveProspect(actx, &p); err != nil {
		fin, ferr := e.finish(ctx, log, *sum, ReasonAborted, Fatal(err))
		*sum = fin
		return true, ferr
	}
	if consumeErr != nil {
		fin, ferr := e.finish(ctx, log, *sum, ReasonAborted, Fatal(consumeErr))
		*sum = fin
		return true, ferr
	}
	return false, nil
}

func (e *Engine) finish(ctx context.Context, log logx.Logger, sum Summary, reason TerminationReason, cause error) (Summary, error) {
	sum.Finished = e.now()
	sum.Reason = reason

	if e.runs != nil {
		// The audit append uses a fresh context: the run context may
		// already be canceled and the record must still land.
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := e.runs.AppendRun(actx, sum); err != nil {
			log.Error("run record append failed", logx.Err(err))
		}
		cancel()
	}

	fields := []logx.Field{
		logx.String("reason", string(reason)),
		logx.Int("attempted", sum.Attempted),
		logx.Int("succeeded", sum.Succeeded),
		logx.Int("failed", sum.Failed),
		logx.Int("skipped", sum.Skipped),
		logx.Duration("took", sum.Finished.Sub(sum.Started)),
	}
	if sum.DryRun {
		fields = append(fields, logx.Int("would_attempt", sum.WouldAttempt))
	}
	if cause != nil {
		log.Error("run aborted", append(fields, logx.Err(cause))...)
		return sum, cause
	}
	log.Info("run finished", fields...)
	return sum, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
