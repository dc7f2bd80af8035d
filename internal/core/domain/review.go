package domain

// ReviewDecision is the outcome of a Proof of Task / Proof of Project review,
// supplied by the external contract service. Only APPROVED and REJECTED are
// terminal for escrow; REVISION_REQUESTED moves no money.
type ReviewDecision string

const (
	DecisionApproved          ReviewDecision = "APPROVED"
	DecisionRejected          ReviewDecision = "REJECTED"
	DecisionRevisionRequested ReviewDecision = "REVISION_REQUESTED"
)

// Valid reports whether the decision is one of the known values.
func (d ReviewDecision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionRevisionRequested:
		return true
	}
	return false
}

// ResolutionOutcome describes what the review coordinator did with a decision.
type ResolutionOutcome string

const (
	ResolutionReleased ResolutionOutcome = "RELEASED"
	ResolutionRefunded ResolutionOutcome = "REFUNDED"
	ResolutionNoOp     ResolutionOutcome = "NO_OP"
)

// BuildDecisionIdempotencyKey constructs the settlement idempotency key for a
// review decision, so retried webhooks and re-renders of the same decision
// collapse to one financial effect.
func BuildDecisionIdempotencyKey(targetRef, decisionID string) string {
	return targetRef + ":" + decisionID
}
