package domain

import (
	"fmt"
	"strings"
)

// Decision is the classification assigned to a hypothesis at the end of one
// pass's investigation. Decisions are the only input to the confidence update.
type Decision string

const (
	DecisionAccept     Decision = "ACCEPT"
	DecisionWeakAccept Decision = "WEAK_ACCEPT"
	DecisionReject     Decision = "REJECT"
	DecisionNoProgress Decision = "NO_PROGRESS"
	DecisionSaturated  Decision = "SATURATED"
)

// Confidence deltas per decision. Fixed policy, no learned weights.
const (
	AcceptDelta     = 0.06
	WeakAcceptDelta = 0.02
)

// ParseDecision validates an untyped decision string from an external
// reasoning collaborator into the closed five-value set. The input is never
// trusted as already-typed; anything unrecognized is an error for the caller
// to coerce to NO_PROGRESS.
func ParseDecision(raw string) (Decision, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch Decision(normalized) {
	case DecisionAccept, DecisionWeakAccept, DecisionReject, DecisionNoProgress, DecisionSaturated:
		return Decision(normalized), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, raw)
}

// ConfidenceDelta returns the fixed confidence contribution of the decision.
func (d Decision) ConfidenceDelta() float64 {
	switch d {
	case DecisionAccept:
		return AcceptDelta
	case DecisionWeakAccept:
		return WeakAcceptDelta
	default:
		return 0
	}
}

// Stalled reports whether the decision represents zero forward progress for
// the pass. A pass in which every investigated hypothesis stalled terminates
// the session as exhausted.
func (d Decision) Stalled() bool {
	return d == DecisionNoProgress || d == DecisionSaturated
}
