package domain

import (
	"context"
	"time"
)

// EvidenceGatherer is the external evidence-gathering collaborator. May be
// backed by a web search or scraping service. Failure is expected and handled
// inside the pass coordinator; it never corrupts confidence state.
type EvidenceGatherer interface {
	Search(ctx context.Context, h Hypothesis) ([]Evidence, error)
}

// DecisionProposal is the raw output of a reasoning collaborator. Decision is
// an open string validated into the closed five-value set at the coordinator
// boundary.
type DecisionProposal struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale"`
}

// Reasoner is the external reasoning collaborator. May be backed by an
// AI-completion service. Its output is never trusted blindly: the pass
// coordinator re-validates both the decision value and the evidence-count
// rule.
type Reasoner interface {
	GenerateHypotheses(ctx context.Context, entityID string, prior []Hypothesis) ([]HypothesisProposal, error)
	ProposeDecision(ctx context.Context, h Hypothesis, evidence []Evidence) (DecisionProposal, error)
}

// PassWindow scopes a context provider query to the elapsed pass.
type PassWindow struct {
	Pass  int       `json:"pass"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MaxContextBoost bounds any single context-provider boost. The ledger
// clamps to it regardless of what a provider returns.
const MaxContextBoost = 0.10

// TemporalBoost is a bounded confidence boost derived from temporal patterns.
// Boost is clamped to [0, MaxContextBoost] by the ledger regardless of
// provider output.
type TemporalBoost struct {
	Boost     float64 `json:"boost"`
	Narrative string  `json:"narrative"`
}

// TemporalContextProvider surfaces time-pattern signals between passes.
// Backed by an episode store.
type TemporalContextProvider interface {
	GetBoost(ctx context.Context, entityID string, window PassWindow) (TemporalBoost, error)
}

// Relationships describes a subject entity's network neighborhood, plus any
// hypotheses the relationships suggest. Backed by a graph store.
type Relationships struct {
	Partners      []string             `json:"partners"`
	Competitors   []string             `json:"competitors"`
	NewHypotheses []HypothesisProposal `json:"new_hypotheses"`
}

// NetworkContextProvider surfaces relationship signals between passes.
type NetworkContextProvider interface {
	GetRelationships(ctx context.Context, entityID string) (Relationships, error)
}

// EmbeddingClient produces vector embeddings for archival similarity search.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
