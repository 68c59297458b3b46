package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/prospect-labs/scout/internal/domain"
)

// scriptedReasoner extends the decision stub with scripted proposal batches:
// the first GenerateHypotheses call returns the opening proposals, each later
// call consumes one batch from later. Received priors are recorded.
type scriptedReasoner struct {
	stubReasoner
	proposals   []domain.HypothesisProposal
	later       [][]domain.HypothesisProposal
	priors      [][]domain.Hypothesis
	generateErr error
}

func (s *scriptedReasoner) GenerateHypotheses(_ context.Context, _ string, prior []domain.Hypothesis) ([]domain.HypothesisProposal, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priors = append(s.priors, prior)
	call := len(s.priors) - 1
	if call == 0 {
		return s.proposals, nil
	}
	if call-1 < len(s.later) {
		return s.later[call-1], nil
	}
	return nil, nil
}

// stubTemporal returns a fixed boost for every window.
type stubTemporal struct {
	boost float64
	err   error
}

func (s *stubTemporal) GetBoost(_ context.Context, _ string, _ domain.PassWindow) (domain.TemporalBoost, error) {
	if s.err != nil {
		return domain.TemporalBoost{}, s.err
	}
	return domain.TemporalBoost{Boost: s.boost, Narrative: "stub"}, nil
}

// stubNetwork hands out one batch of relationships per call.
type stubNetwork struct {
	mu      sync.Mutex
	batches []domain.Relationships
	call    int
}

func (s *stubNetwork) GetRelationships(_ context.Context, _ string) (domain.Relationships, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.call >= len(s.batches) {
		return domain.Relationships{}, nil
	}
	batch := s.batches[s.call]
	s.call++
	return batch, nil
}

func proposals(category domain.Category, claims ...string) []domain.HypothesisProposal {
	out := make([]domain.HypothesisProposal, 0, len(claims))
	for _, c := range claims {
		out = append(out, domain.HypothesisProposal{Category: category, Claim: c, InitialConfidence: 0.30})
	}
	return out
}

func testOrchestrator(reasoner domain.Reasoner) *Orchestrator {
	return NewOrchestrator(&stubGatherer{perCall: 3}, reasoner, OrchestratorConfig{
		TopK:        10,
		Coordinator: fastConfig(),
	}, nil)
}

func TestDiscoverReachesActionable(t *testing.T) {
	// Pass 1: four accepts across two categories lift the session from 0.50
	// to 0.74, so the gate holds but confidence is short of 0.80. The temporal
	// boost adds 0.10 between passes; pass 2 investigates two fresh
	// network-suggested hypotheses and crosses the bar.
	reasoner := &scriptedReasoner{proposals: append(
		proposals(domain.CategoryAutomation, "accept automation a", "accept automation b"),
		proposals(domain.CategoryIntegration, "accept integration a", "accept integration b")...,
	)}

	o := testOrchestrator(reasoner)
	o.SetTemporalProvider(&stubTemporal{boost: 0.10})
	o.SetNetworkProvider(&stubNetwork{batches: []domain.Relationships{
		{NewHypotheses: proposals(domain.CategoryAnalytics, "accept analytics a", "accept analytics b")},
	}})

	session, err := o.Discover(context.Background(), "acme-corp", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.Reason != domain.ReasonActionable {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonActionable)
	}
	if len(session.Passes) != 2 {
		t.Errorf("passes = %d, want 2", len(session.Passes))
	}
	// 0.50 + 4*0.06 + 0.10 + 2*0.06 = 0.96
	if want := 0.96; math.Abs(session.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %f, want %f", session.Confidence, want)
	}
	if session.Confidence < ActionableConfidence {
		t.Errorf("confidence %f below actionable bar", session.Confidence)
	}
}

func TestDiscoverExhaustsWhenAllStalled(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryMigration, "nothing here", "still nothing")}

	o := testOrchestrator(reasoner)
	session, err := o.Discover(context.Background(), "acme-corp", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.Reason != domain.ReasonExhausted {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonExhausted)
	}
	// An all-stalled pass terminates without consuming further passes.
	if len(session.Passes) != 1 {
		t.Errorf("passes = %d, want 1", len(session.Passes))
	}
	if session.Confidence != BaseConfidence {
		t.Errorf("confidence = %f, want unchanged %f", session.Confidence, BaseConfidence)
	}
}

func TestDiscoverStopsAtMaxPasses(t *testing.T) {
	// Weak accepts keep the session moving without ever reaching the bar;
	// the network provider feeds each pass a fresh hypothesis.
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryExpansion, "weak signal one")}

	o := testOrchestrator(reasoner)
	o.SetNetworkProvider(&stubNetwork{batches: []domain.Relationships{
		{NewHypotheses: proposals(domain.CategoryExpansion, "weak signal two")},
		{NewHypotheses: proposals(domain.CategoryExpansion, "weak signal three")},
	}})

	session, err := o.Discover(context.Background(), "acme-corp", 3)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.Reason != domain.ReasonMaxPasses {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonMaxPasses)
	}
	if len(session.Passes) != 3 {
		t.Errorf("passes = %d, want 3", len(session.Passes))
	}
	// 0.50 + 3 weak accepts.
	if want := BaseConfidence + 3*domain.WeakAcceptDelta; math.Abs(session.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %f, want %f", session.Confidence, want)
	}
}

func TestDiscoverConfidenceTrajectory(t *testing.T) {
	// 0.50, then +0.08 (accept, weak accept, reject), +0.18 (three accepts,
	// two rejects), +0.14 (two accepts, weak accept): 0.58, 0.76, 0.90.
	reasoner := &scriptedReasoner{
		proposals: []domain.HypothesisProposal{
			{Category: domain.CategoryAutomation, Claim: "accept invoice entry automation", InitialConfidence: 0.30},
			{Category: domain.CategoryIntegration, Claim: "weak crm billing link", InitialConfidence: 0.30},
			{Category: domain.CategoryMigration, Claim: "reject mainframe exit", InitialConfidence: 0.30},
		},
		later: [][]domain.HypothesisProposal{
			{
				{Category: domain.CategoryAutomation, Claim: "accept report generation", InitialConfidence: 0.30},
				{Category: domain.CategoryIntegration, Claim: "accept erp sync", InitialConfidence: 0.30},
				{Category: domain.CategoryAnalytics, Claim: "accept churn dashboards", InitialConfidence: 0.30},
				{Category: domain.CategoryMigration, Claim: "reject datacenter move", InitialConfidence: 0.30},
				{Category: domain.CategorySecurity, Claim: "reject mfa rollout", InitialConfidence: 0.30},
			},
			{
				{Category: domain.CategoryAutomation, Claim: "accept onboarding automation", InitialConfidence: 0.30},
				{Category: domain.CategoryAnalytics, Claim: "accept funnel metrics", InitialConfidence: 0.30},
				{Category: domain.CategoryExpansion, Claim: "weak upsell motion", InitialConfidence: 0.30},
			},
		},
	}

	o := testOrchestrator(reasoner)
	session, err := o.Discover(context.Background(), "acme-corp", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.Reason != domain.ReasonActionable {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonActionable)
	}
	if len(session.Passes) != 3 {
		t.Fatalf("passes = %d, want 3", len(session.Passes))
	}
	for i, want := range []float64{0.58, 0.76, 0.90} {
		if got := session.Passes[i].Confidence; math.Abs(got-want) > 1e-9 {
			t.Errorf("pass %d confidence = %f, want %f", i+1, got, want)
		}
	}
	if math.Abs(session.Confidence-0.90) > 1e-9 {
		t.Errorf("confidence = %f, want 0.90", session.Confidence)
	}
}

func TestDiscoverRegeneratesWithPriorContext(t *testing.T) {
	reasoner := &scriptedReasoner{
		proposals: proposals(domain.CategoryExpansion, "weak opening lead"),
		later: [][]domain.HypothesisProposal{
			proposals(domain.CategoryAutomation, "accept a follow-up"),
		},
	}

	o := testOrchestrator(reasoner)
	session, err := o.Discover(context.Background(), "acme-corp", 3)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// Pass 1 settles the opener, pass 2 investigates the regenerated claim,
	// pass 3 has nothing left.
	if session.Reason != domain.ReasonExhausted {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonExhausted)
	}
	if len(session.Passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(session.Passes))
	}
	if got := session.Passes[1].Decisions()[domain.DecisionAccept]; got != 1 {
		t.Errorf("pass 2 accepts = %d, want the regenerated hypothesis accepted", got)
	}

	if len(reasoner.priors) < 2 {
		t.Fatalf("GenerateHypotheses called %d times, want at least 2", len(reasoner.priors))
	}
	if len(reasoner.priors[0]) != 0 {
		t.Errorf("initial generation received %d priors, want none", len(reasoner.priors[0]))
	}
	found := false
	for _, h := range reasoner.priors[1] {
		if h.Claim == "weak opening lead" {
			found = true
		}
	}
	if !found {
		t.Error("regeneration did not receive the settled hypothesis as prior")
	}
}

func TestDiscoverCancellation(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryAutomation, "accept something")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := testOrchestrator(reasoner)
	session, err := o.Discover(ctx, "acme-corp", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if session.Reason != domain.ReasonCancelled {
		t.Errorf("reason = %s, want %s", session.Reason, domain.ReasonCancelled)
	}
	if len(session.Passes) != 0 {
		t.Errorf("passes = %d, want 0", len(session.Passes))
	}
}

func TestDiscoverEngineUnavailable(t *testing.T) {
	t.Run("empty entity id", func(t *testing.T) {
		o := testOrchestrator(&scriptedReasoner{proposals: proposals(domain.CategoryAutomation, "x")})
		if _, err := o.Discover(context.Background(), "  ", 5); !errors.Is(err, domain.ErrEngineUnavailable) {
			t.Errorf("error = %v, want ErrEngineUnavailable", err)
		}
	})

	t.Run("generation failure", func(t *testing.T) {
		o := testOrchestrator(&scriptedReasoner{generateErr: errors.New("llm down")})
		if _, err := o.Discover(context.Background(), "acme-corp", 5); !errors.Is(err, domain.ErrEngineUnavailable) {
			t.Errorf("error = %v, want ErrEngineUnavailable", err)
		}
	})

	t.Run("no proposals", func(t *testing.T) {
		o := testOrchestrator(&scriptedReasoner{})
		if _, err := o.Discover(context.Background(), "acme-corp", 5); !errors.Is(err, domain.ErrEngineUnavailable) {
			t.Errorf("error = %v, want ErrEngineUnavailable", err)
		}
	})
}

func TestDiscoverDeduplicatesProposals(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: append(
		proposals(domain.CategoryAutomation, "accept the claim", "Accept The Claim", "  accept the claim  "),
		proposals(domain.CategoryIntegration, "accept the claim")..., // same claim, other category
	)}

	o := testOrchestrator(reasoner)
	session, err := o.Discover(context.Background(), "acme-corp", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(session.Hypotheses) != 2 {
		t.Errorf("hypotheses = %d, want 2 after case-insensitive per-category dedupe", len(session.Hypotheses))
	}
}

func TestSaturatedCategoryNeverRedispatched(t *testing.T) {
	// Three rejects saturate the category during pass 1; the network
	// provider then re-proposes into it. The new hypothesis is admitted
	// pre-saturated and pass 2 has nothing to dispatch.
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategorySecurity,
		"reject one", "reject two", "reject three")}

	o := testOrchestrator(reasoner)
	network := &stubNetwork{batches: []domain.Relationships{
		{NewHypotheses: proposals(domain.CategorySecurity, "reject four")},
	}}
	o.SetNetworkProvider(network)

	session, err := o.Discover(context.Background(), "acme-corp", 5)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.Reason != domain.ReasonExhausted {
		t.Fatalf("reason = %s, want %s", session.Reason, domain.ReasonExhausted)
	}
	if len(session.Passes) != 1 {
		t.Errorf("passes = %d, want 1", len(session.Passes))
	}

	for _, h := range session.Hypotheses {
		if h.Claim == "reject four" && h.State != domain.StateSaturated {
			t.Errorf("re-proposed hypothesis state = %s, want %s", h.State, domain.StateSaturated)
		}
	}
}

func TestDiscoverPublishesProgress(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryAutomation, "accept it")}

	progress := make(chan domain.PassResult, 8)
	o := testOrchestrator(reasoner)
	o.SetProgress(progress)

	session, err := o.Discover(context.Background(), "acme-corp", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	close(progress)

	var results []domain.PassResult
	for r := range progress {
		results = append(results, r)
	}
	if len(results) != len(session.Passes) {
		t.Errorf("published %d pass results, want %d", len(results), len(session.Passes))
	}
}

func TestDiscoverSessionSnapshotIsComplete(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: append(
		proposals(domain.CategoryAutomation, "accept automation"),
		proposals(domain.CategoryMigration, "nothing doing")...,
	)}

	o := testOrchestrator(reasoner)
	session, err := o.Discover(context.Background(), "acme-corp", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if session.EntityID != "acme-corp" {
		t.Errorf("entity id = %q", session.EntityID)
	}
	if session.ID == uuid.Nil {
		t.Error("session id not assigned")
	}
	if session.CompletedAt.Before(session.StartedAt) {
		t.Error("completed before started")
	}
	if len(session.Hypotheses) != 2 {
		t.Fatalf("hypotheses = %d, want 2", len(session.Hypotheses))
	}

	states := make(map[domain.HypothesisState]int)
	for _, h := range session.Hypotheses {
		states[h.State]++
	}
	if states[domain.StateAccepted] != 1 {
		t.Errorf("accepted = %d, want 1", states[domain.StateAccepted])
	}
	if states[domain.StateProposed] != 1 {
		t.Errorf("proposed = %d, want 1 (NO_PROGRESS returns to proposed)", states[domain.StateProposed])
	}
}

func TestDiscoverTemporalProviderFailureIsNonFatal(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryExpansion, "weak lead")}

	o := testOrchestrator(reasoner)
	o.SetTemporalProvider(&stubTemporal{err: errors.New("episode store down")})
	o.SetNetworkProvider(&stubNetwork{batches: []domain.Relationships{
		{NewHypotheses: proposals(domain.CategoryExpansion, "weak lead two")},
	}})

	session, err := o.Discover(context.Background(), "acme-corp", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if session.Reason != domain.ReasonMaxPasses {
		t.Errorf("reason = %s, want %s", session.Reason, domain.ReasonMaxPasses)
	}
	if len(session.Passes) != 2 {
		t.Errorf("passes = %d, want 2", len(session.Passes))
	}
}

func TestNetworkPartnersBoostSession(t *testing.T) {
	reasoner := &scriptedReasoner{proposals: proposals(domain.CategoryExpansion, "weak lead")}

	partners := make([]string, 4)
	for i := range partners {
		partners[i] = fmt.Sprintf("partner-%d", i)
	}

	o := testOrchestrator(reasoner)
	o.SetNetworkProvider(&stubNetwork{batches: []domain.Relationships{
		{Partners: partners, NewHypotheses: proposals(domain.CategoryExpansion, "weak lead two")},
	}})

	session, err := o.Discover(context.Background(), "acme-corp", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// 0.50 + 2 weak accepts + 4 partners * 0.01
	if want := BaseConfidence + 2*domain.WeakAcceptDelta + 0.04; math.Abs(session.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %f, want %f", session.Confidence, want)
	}

	// The boost flows through the ledger, so the live hypothesis moved too:
	// 0.30 + the full 0.04 share + its own weak accept.
	for _, h := range session.Hypotheses {
		if h.Claim != "weak lead two" {
			continue
		}
		if want := 0.36; math.Abs(h.Confidence-want) > 1e-9 {
			t.Errorf("boosted hypothesis confidence = %f, want %f", h.Confidence, want)
		}
	}
}
