package domain

import (
	"time"

	"github.com/google/uuid"
)

// HypothesisState is the per-pass investigation state of a hypothesis.
//
// PROPOSED -> INVESTIGATING -> {ACCEPTED | WEAK_ACCEPTED | REJECTED | SATURATED}
// NO_PROGRESS is non-terminal: the hypothesis returns to PROPOSED for the
// next pass unless its category has saturated.
type HypothesisState string

const (
	StateProposed      HypothesisState = "proposed"
	StateInvestigating HypothesisState = "investigating"
	StateAccepted      HypothesisState = "accepted"
	StateWeakAccepted  HypothesisState = "weak_accepted"
	StateRejected      HypothesisState = "rejected"
	StateSaturated     HypothesisState = "saturated"
)

// Terminal reports whether the state is final. Terminal hypotheses are
// immutable and excluded from dispatch.
func (s HypothesisState) Terminal() bool {
	switch s {
	case StateAccepted, StateWeakAccepted, StateRejected, StateSaturated:
		return true
	}
	return false
}

// Hypothesis is a candidate claim under investigation about a subject entity,
// e.g. "entity needs service category X". Owned exclusively by the session
// that created it.
type Hypothesis struct {
	ID            uuid.UUID       `json:"id"`
	EntityID      string          `json:"entity_id"`
	Category      Category        `json:"category"`
	Claim         string          `json:"claim"`
	Confidence    float64         `json:"confidence"`
	FrequencySeen int             `json:"frequency_seen"`
	EvidenceCount int             `json:"evidence_count"`
	State         HypothesisState `json:"state"`
	OriginPass    int             `json:"origin_pass"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HypothesisProposal is a hypothesis candidate from a collaborator before it
// enters the ledger. The engine assigns identity, state, and origin pass.
type HypothesisProposal struct {
	Category          Category `json:"category"`
	Claim             string   `json:"claim"`
	InitialConfidence float64  `json:"initial_confidence"`
}
