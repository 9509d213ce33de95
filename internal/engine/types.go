package engine

import (
	"context"
	"time"

	"outreachbot/internal/prospect"
)

// Config is the validated per-run configuration.
type Config struct {
	// DailyLimit is the shared daily action budget (informational here;
	// enforcement lives in the rate limiter built from the same value).
	DailyLimit int

	// RunLimit optionally caps actions within this one run (the --limit
	// flag). Reaching it terminates the run as CompletedNormally.
	// 0 means no per-run cap beyond the daily budget.
	RunLimit int

	// MaxAttempts is the per-prospect attempt cap before Skipped.
	MaxAttempts int

	// MinDelay/MaxDelay bound the randomized pacing between actions.
	MinDelay time.Duration
	MaxDelay time.Duration

	// DryRun exercises ordering, pacing and budget accounting without
	// invoking the executor or persisting any state change.
	DryRun bool

	// Message is the optional note attached to connection requests.
	Message string
}

// ProspectStore is the repository surface the engine needs. Both calls are
// synchronous and durable on return.
type ProspectStore interface {
	FindEligible(ctx context.Context, maxAttempts, limit int) ([]prospect.Prospect, error)
	SaveProspect(ctx context.Context, p *prospect.Prospect) error
}

// RunSink receives the immutable audit record of a finished run.
type RunSink interface {
	AppendRun(ctx context.Context, sum Summary) error
}

// Summary is the user-visible outcome of one run and the payload of its
// audit record.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	DailyLimit int
	DryRun     bool

	Eligible     int
	Attempted    int
	Succeeded    int
	Failed       int
	Skipped      int // prospects that hit the attempt cap during this run
	WouldAttempt int // dry-run counterpart of Attempted

	Reason TerminationReason
}
