package llm

import (
	"context"
	"sync"

	"github.com/prospect-labs/scout/internal/domain"
)

// MockReasoner is a deterministic Reasoner for tests and keyless
// local runs. Responses are configurable; calls are recorded.
type MockReasoner struct {
	mu sync.Mutex

	Proposals []domain.HypothesisProposal
	Decision  domain.DecisionProposal

	GenerateErr error
	DecideErr   error

	GenerateCalls int
	DecideCalls   []domain.Hypothesis
}

func NewMockReasoner() *MockReasoner {
	return &MockReasoner{
		Proposals: []domain.HypothesisProposal{
			{Category: domain.CategoryAutomation, Claim: "entity needs automated report generation", InitialConfidence: 0.35},
			{Category: domain.CategoryIntegration, Claim: "entity's CRM is disconnected from billing", InitialConfidence: 0.30},
		},
		Decision: domain.DecisionProposal{
			Decision:  "WEAK_ACCEPT",
			Rationale: "mock: evidence is suggestive",
		},
	}
}

func (m *MockReasoner) GenerateHypotheses(_ context.Context, _ string, _ []domain.Hypothesis) ([]domain.HypothesisProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls++
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	out := make([]domain.HypothesisProposal, len(m.Proposals))
	copy(out, m.Proposals)
	return out, nil
}

func (m *MockReasoner) ProposeDecision(_ context.Context, h domain.Hypothesis, _ []domain.Evidence) (domain.DecisionProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecideCalls = append(m.DecideCalls, h)
	if m.DecideErr != nil {
		return domain.DecisionProposal{}, m.DecideErr
	}
	return m.Decision, nil
}
