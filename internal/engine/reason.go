package engine

// TerminationReason records why a run stopped. It is part of the immutable
// run audit record.
type TerminationReason string

const (
	// ReasonBudgetExhausted: the daily budget ran out with candidates left.
	ReasonBudgetExhausted TerminationReason = "budget_exhausted"
	// ReasonNoEligibleProspects: the candidate list ran out with budget left.
	ReasonNoEligibleProspects TerminationReason = "no_eligible_prospects"
	// ReasonCompletedNormally: the per-run action limit was reached.
	ReasonCompletedNormally TerminationReason = "completed_normally"
	// ReasonAborted: operator interrupt, executor unreadiness, or a fatal
	// storage failure stopped the run early.
	ReasonAborted TerminationReason = "aborted"
)

// Normal reports whether the reason is an expected termination rather
// than a failure. Exit codes and alerting key off this.
func (r TerminationReason) Normal() bool {
	return r == ReasonBudgetExhausted || r == ReasonNoEligibleProspects || r == ReasonCompletedNormally
}
