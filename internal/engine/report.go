package engine

import (
	"bytes"
	"sort"
	"time"

	"github.com/prospect-labs/scout/internal/domain"
)

// BuildReport projects a terminal session into ranked, valued, actionable
// opportunities. Pure with respect to the session: it never mutates it.
func BuildReport(s *domain.Session, table domain.CategoryTable) domain.OpportunityReport {
	if table == nil {
		table = domain.DefaultCategoryTable()
	}

	var opportunities []domain.Opportunity
	total := 0.0
	for _, h := range s.Hypotheses {
		if h.State != domain.StateAccepted && h.State != domain.StateWeakAccepted {
			continue
		}
		value := table.BaseValue(h.Category) * h.Confidence
		opportunities = append(opportunities, domain.Opportunity{
			HypothesisID:   h.ID,
			Category:       h.Category,
			Claim:          h.Claim,
			Confidence:     h.Confidence,
			EvidenceCount:  h.EvidenceCount,
			EstimatedValue: value,
			Action:         domain.ActionForConfidence(h.Confidence),
		})
		total += value
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].EstimatedValue != opportunities[j].EstimatedValue {
			return opportunities[i].EstimatedValue > opportunities[j].EstimatedValue
		}
		if opportunities[i].Confidence != opportunities[j].Confidence {
			return opportunities[i].Confidence > opportunities[j].Confidence
		}
		return bytes.Compare(opportunities[i].HypothesisID[:], opportunities[j].HypothesisID[:]) < 0
	})

	return domain.OpportunityReport{
		SessionID:           s.ID,
		EntityID:            s.EntityID,
		GeneratedAt:         time.Now(),
		Reason:              s.Reason,
		Confidence:          s.Confidence,
		Opportunities:       opportunities,
		TotalEstimatedValue: total,
	}
}
