package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/prospect-labs/scout/internal/domain"
)

// MockGatherer is a deterministic EvidenceGatherer for tests and keyless
// local runs.
type MockGatherer struct {
	mu sync.Mutex

	// EvidencePerCall sets how many synthetic evidence items each Search
	// returns.
	EvidencePerCall int
	SearchErr       error

	Calls []domain.Hypothesis
}

func NewMockGatherer() *MockGatherer {
	return &MockGatherer{EvidencePerCall: 3}
}

func (m *MockGatherer) Search(_ context.Context, h domain.Hypothesis) ([]domain.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, h)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	evidence := make([]domain.Evidence, 0, m.EvidencePerCall)
	for i := 0; i < m.EvidencePerCall; i++ {
		evidence = append(evidence, domain.Evidence{
			HypothesisID: h.ID,
			Source:       fmt.Sprintf("mock://result/%d", i),
			Excerpt:      fmt.Sprintf("synthetic observation %d for %q", i, h.Claim),
			Credibility:  0.6,
		})
	}
	return evidence, nil
}
