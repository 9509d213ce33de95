// Package executor defines the capability interface for performing one
// real-world outreach action. The run engine only ever sees this interface,
// so the browser-backed implementation and test fakes are interchangeable.
package executor

import (
	"context"

	"outreachbot/internal/prospect"
)

// Executor performs connection requests against prospect profiles.
type Executor interface {
	// Ready verifies the executor can act (authenticated session reachable).
	// A Ready failure aborts a run during initialization, before any state
	// is mutated.
	Ready(ctx context.Context) error

	// SendInvite performs one connection request, attaching note when the
	// page offers it. A returned error is a per-prospect action failure:
	// it is recorded against the prospect and never aborts the run.
	// Timeout policy is the executor's own concern.
	SendInvite(ctx context.Context, p prospect.Prospect, note string) error
}
