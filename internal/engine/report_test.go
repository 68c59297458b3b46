package engine

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/prospect-labs/scout/internal/domain"
)

func terminalSession() *domain.Session {
	return &domain.Session{
		ID:         uuid.New(),
		EntityID:   "acme-corp",
		Confidence: 0.82,
		Reason:     domain.ReasonActionable,
		Hypotheses: []domain.Hypothesis{
			{ID: uuid.New(), Category: domain.CategoryAutomation, Claim: "a", Confidence: 0.70, EvidenceCount: 4, State: domain.StateAccepted},
			{ID: uuid.New(), Category: domain.CategoryIntegration, Claim: "b", Confidence: 0.45, EvidenceCount: 2, State: domain.StateWeakAccepted},
			{ID: uuid.New(), Category: domain.CategorySecurity, Claim: "c", Confidence: 0.30, EvidenceCount: 1, State: domain.StateRejected},
			{ID: uuid.New(), Category: domain.CategoryMigration, Claim: "d", Confidence: 0.30, EvidenceCount: 0, State: domain.StateSaturated},
			{ID: uuid.New(), Category: domain.CategoryAnalytics, Claim: "e", Confidence: 0.30, EvidenceCount: 0, State: domain.StateProposed},
		},
	}
}

func TestBuildReportFiltersToAccepted(t *testing.T) {
	s := terminalSession()
	report := BuildReport(s, nil)

	if len(report.Opportunities) != 2 {
		t.Fatalf("opportunities = %d, want accepted + weak-accepted only", len(report.Opportunities))
	}
	for _, opp := range report.Opportunities {
		if opp.Category == domain.CategorySecurity || opp.Category == domain.CategoryMigration {
			t.Errorf("non-accepted hypothesis %s surfaced in report", opp.Category)
		}
	}
	if report.SessionID != s.ID || report.EntityID != s.EntityID {
		t.Error("report identity fields do not match session")
	}
	if report.Reason != domain.ReasonActionable || report.Confidence != 0.82 {
		t.Errorf("report carries reason=%s confidence=%f", report.Reason, report.Confidence)
	}
}

func TestBuildReportValuesAndOrder(t *testing.T) {
	report := BuildReport(terminalSession(), nil)

	// automation: 50000 * 0.70 = 35000; integration: 35000 * 0.45 = 15750.
	if got := report.Opportunities[0].EstimatedValue; math.Abs(got-35000) > 1e-6 {
		t.Errorf("top value = %f, want 35000", got)
	}
	if got := report.Opportunities[1].EstimatedValue; math.Abs(got-15750) > 1e-6 {
		t.Errorf("second value = %f, want 15750", got)
	}
	if got := report.TotalEstimatedValue; math.Abs(got-50750) > 1e-6 {
		t.Errorf("total = %f, want 50750", got)
	}
}

func TestBuildReportActionBands(t *testing.T) {
	tests := []struct {
		confidence float64
		want       domain.RecommendedAction
	}{
		{0.85, domain.ActionImmediateOutreach},
		{0.80, domain.ActionImmediateOutreach},
		{0.79, domain.ActionEngage},
		{0.60, domain.ActionEngage},
		{0.59, domain.ActionWatchlist},
		{0.40, domain.ActionWatchlist},
		{0.39, domain.ActionMonitor},
		{0.0, domain.ActionMonitor},
	}

	for _, tt := range tests {
		if got := domain.ActionForConfidence(tt.confidence); got != tt.want {
			t.Errorf("ActionForConfidence(%f) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestBuildReportDoesNotMutateSession(t *testing.T) {
	s := terminalSession()
	statesBefore := make([]domain.HypothesisState, len(s.Hypotheses))
	for i, h := range s.Hypotheses {
		statesBefore[i] = h.State
	}

	_ = BuildReport(s, nil)

	for i, h := range s.Hypotheses {
		if h.State != statesBefore[i] {
			t.Errorf("hypothesis %d state mutated: %s -> %s", i, statesBefore[i], h.State)
		}
	}
}

func TestBuildReportCustomTable(t *testing.T) {
	table := domain.CategoryTable{
		domain.CategoryAutomation: {Weight: 1.5, BaseValue: 100000},
	}
	report := BuildReport(terminalSession(), table)

	// automation uses the custom base; integration falls back to the default.
	if got := report.Opportunities[0].EstimatedValue; math.Abs(got-70000) > 1e-6 {
		t.Errorf("custom-table value = %f, want 70000", got)
	}
	if got := report.Opportunities[1].EstimatedValue; math.Abs(got-4500) > 1e-6 {
		t.Errorf("fallback value = %f, want 4500", got)
	}
}
