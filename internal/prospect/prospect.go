// Package prospect holds the outreach domain model: prospect records and
// their status state machine.
package prospect

import (
	"fmt"
	"time"
)

// Status is the outreach state of a prospect.
//
// Transitions are driven by the run engine only:
//
//	Discovered -> Queued -> Connecting -> Connected | Failed | Skipped
//
// Connected and Skipped are terminal; Failed prospects stay eligible until
// their attempt count reaches the configured cap.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusQueued     Status = "queued"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDiscovered, StatusQueued, StatusConnecting, StatusConnected, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether no further automated transition may occur.
func (s Status) Terminal() bool {
	return s == StatusConnected || s == StatusSkipped
}

// CanTransition reports whether s -> next is a legal state-machine edge.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusDiscovered:
		return next == StatusQueued
	case StatusQueued:
		return next == StatusConnecting
	case StatusConnecting:
		return next == StatusConnected || next == StatusFailed || next == StatusSkipped
	case StatusFailed:
		// Retried in a later run.
		return next == StatusConnecting
	default:
		return false
	}
}

// Prospect is one discovered profile targeted for outreach.
//
// URL is the stable external identity (unique key). Attempt metadata is
// owned by the run engine; discovery tooling only ever creates records in
// StatusDiscovered.
type Prospect struct {
	ID           int64
	URL          string
	FullName     string
	FirstName    string
	LastName     string
	Headline     string
	Company      string
	Location     string
	Source       string
	Notes        string
	Status       Status
	Attempts     int
	LastAttempt  time.Time // zero when never attempted
	LastFailure  string
	DiscoveredAt time.Time
	UpdatedAt    time.Time
}

// Transition moves p to next, enforcing the state machine.
func (p *Prospect) Transition(next Status) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("prospect %s: illegal transition %s -> %s", p.URL, p.Status, next)
	}
	p.Status = next
	return nil
}

// Eligible reports whether p may be selected for an action given the
// attempt cap. Terminal and in-flight states are never eligible.
func (p *Prospect) Eligible(maxAttempts int) bool {
	switch p.Status {
	case StatusDiscovered, StatusQueued:
		return true
	case StatusFailed:
		return p.Attempts < maxAttempts
	}
	return false
}

// RecordFailure applies one failed attempt at time now. When the attempt
// count reaches cap the prospect becomes Skipped permanently, otherwise it
// returns to Failed and stays retryable in a future run.
func (p *Prospect) RecordFailure(now time.Time, reason string, cap int) {
	p.Attempts++
	p.LastAttempt = now
	p.LastFailure = reason
	if p.Attempts >= cap {
		p.Status = StatusSkipped
	} else {
		p.Status = StatusFailed
	}
}

// RecordSuccess applies one successful attempt at time now.
func (p *Prospect) RecordSuccess(now time.Time) {
	p.Attempts++
	p.LastAttempt = now
	p.LastFailure = ""
	p.Status = StatusConnected
}
