package domain

import (
	"time"

	"github.com/google/uuid"
)

// Evidence is one observed fact supporting or contradicting a hypothesis.
// Append-only: never mutated or deleted once recorded. Belongs to exactly one
// hypothesis.
type Evidence struct {
	ID           uuid.UUID `json:"id"`
	HypothesisID uuid.UUID `json:"hypothesis_id"`
	Source       string    `json:"source"`
	Excerpt      string    `json:"excerpt"`
	Credibility  float64   `json:"credibility"`
	Pass         int       `json:"pass"`
	ObservedAt   time.Time `json:"observed_at"`
}

// MinEvidenceForAccept is the minimum evidence items a hypothesis needs in a
// pass before it may receive ACCEPT. Fewer forces the decision down to at
// most WEAK_ACCEPT. Enforced in the pass coordinator, never trusted from the
// reasoning collaborator.
const MinEvidenceForAccept = 3
