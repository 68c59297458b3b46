package domain

import (
	"time"

	"github.com/google/uuid"
)

// TerminationReason explains why a session stopped.
type TerminationReason string

const (
	ReasonMaxPasses  TerminationReason = "MAX_PASSES"
	ReasonActionable TerminationReason = "ACTIONABLE"
	ReasonExhausted  TerminationReason = "EXHAUSTED"
	ReasonCancelled  TerminationReason = "CANCELLED"
)

// HypothesisOutcome records the investigation of one hypothesis within one
// pass: the decision applied to the ledger, the evidence gathered, and the
// hypothesis confidence afterwards.
type HypothesisOutcome struct {
	HypothesisID  uuid.UUID `json:"hypothesis_id"`
	Category      Category  `json:"category"`
	Decision      Decision  `json:"decision"`
	EvidenceAdded int       `json:"evidence_added"`
	Confidence    float64   `json:"confidence"`
	Rationale     string    `json:"rationale,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// PassResult is the immutable record of one completed pass. Created once by
// the pass coordinator after all dispatched workers have finished; never
// mutated afterward. Retained for audit and for context provider input in
// later passes.
type PassResult struct {
	Pass            int                 `json:"pass"`
	Investigated    []HypothesisOutcome `json:"investigated"`
	EvidenceAdded   int                 `json:"evidence_added"`
	ConfidenceDelta float64             `json:"confidence_delta"`
	Confidence      float64             `json:"confidence"`
	Elapsed         time.Duration       `json:"elapsed"`
	Errors          []string            `json:"errors,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
}

// AllStalled reports whether every investigated hypothesis received
// NO_PROGRESS or SATURATED. An all-stalled pass exhausts the session.
func (p PassResult) AllStalled() bool {
	if len(p.Investigated) == 0 {
		return true
	}
	for _, o := range p.Investigated {
		if !o.Decision.Stalled() {
			return false
		}
	}
	return true
}

// Decisions returns the multiset of decisions recorded in the pass, keyed by
// decision value.
func (p PassResult) Decisions() map[Decision]int {
	counts := make(map[Decision]int, len(p.Investigated))
	for _, o := range p.Investigated {
		counts[o.Decision]++
	}
	return counts
}

// Session is the aggregate root of one discovery run: the subject entity,
// the ordered pass history, the terminal hypothesis set, and the running
// confidence. Constructed by the orchestrator as a snapshot of ledger state;
// archived at termination.
type Session struct {
	ID          uuid.UUID         `json:"id"`
	EntityID    string            `json:"entity_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Passes      []PassResult      `json:"passes"`
	Hypotheses  []Hypothesis      `json:"hypotheses"`
	Confidence  float64           `json:"confidence"`
	Reason      TerminationReason `json:"reason"`
}

// RecommendedAction maps a confidence band to the next business step.
type RecommendedAction string

const (
	ActionImmediateOutreach RecommendedAction = "immediate_outreach" // >= 0.80
	ActionEngage            RecommendedAction = "engage"             // 0.60-0.79
	ActionWatchlist         RecommendedAction = "watchlist"          // 0.40-0.59
	ActionMonitor           RecommendedAction = "monitor"            // < 0.40
)

// ActionForConfidence returns the recommended action for a confidence value.
func ActionForConfidence(c float64) RecommendedAction {
	switch {
	case c >= 0.80:
		return ActionImmediateOutreach
	case c >= 0.60:
		return ActionEngage
	case c >= 0.40:
		return ActionWatchlist
	default:
		return ActionMonitor
	}
}

// Opportunity is the read-only projection of a terminal accepted hypothesis.
type Opportunity struct {
	HypothesisID   uuid.UUID         `json:"hypothesis_id"`
	Category       Category          `json:"category"`
	Claim          string            `json:"claim"`
	Confidence     float64           `json:"confidence"`
	EvidenceCount  int               `json:"evidence_count"`
	EstimatedValue float64           `json:"estimated_value"`
	Action         RecommendedAction `json:"action"`
}

// OpportunityReport ranks the opportunities surfaced by a terminal session.
type OpportunityReport struct {
	SessionID           uuid.UUID         `json:"session_id"`
	EntityID            string            `json:"entity_id"`
	GeneratedAt         time.Time         `json:"generated_at"`
	Reason              TerminationReason `json:"reason"`
	Confidence          float64           `json:"confidence"`
	Opportunities       []Opportunity     `json:"opportunities"`
	TotalEstimatedValue float64           `json:"total_estimated_value"`
}
