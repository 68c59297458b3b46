package signals

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prospect-labs/scout/internal/domain"
)

// minEdgeStrength filters noise edges out of the neighborhood.
const minEdgeStrength = 0.2

// NetworkSignal derives relationship context from the entity graph. Partner
// and competitor lists feed the session confidence boost; customer and
// supplier edges suggest follow-up hypotheses for later passes.
type NetworkSignal struct {
	graph  domain.GraphStore
	logger *zap.Logger
}

func NewNetworkSignal(graph domain.GraphStore, logger *zap.Logger) *NetworkSignal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkSignal{graph: graph, logger: logger}
}

func (s *NetworkSignal) GetRelationships(ctx context.Context, entityID string) (domain.Relationships, error) {
	edges, err := s.graph.GetByEntity(ctx, entityID)
	if err != nil {
		return domain.Relationships{}, fmt.Errorf("load entity edges: %w", err)
	}

	var rel domain.Relationships
	for _, e := range edges {
		if e.Strength < minEdgeStrength {
			continue
		}
		switch e.Relation {
		case domain.RelationPartner:
			rel.Partners = append(rel.Partners, e.RelatedEntityID)
		case domain.RelationCompetitor:
			rel.Competitors = append(rel.Competitors, e.RelatedEntityID)
		case domain.RelationCustomer:
			rel.NewHypotheses = append(rel.NewHypotheses, domain.HypothesisProposal{
				Category:          domain.CategoryExpansion,
				Claim:             fmt.Sprintf("entity can expand its offering to customers like %s", e.RelatedEntityID),
				InitialConfidence: scaledPrior(e.Strength),
			})
		case domain.RelationSupplier:
			rel.NewHypotheses = append(rel.NewHypotheses, domain.HypothesisProposal{
				Category:          domain.CategoryIntegration,
				Claim:             fmt.Sprintf("entity's supply workflow with %s lacks system integration", e.RelatedEntityID),
				InitialConfidence: scaledPrior(e.Strength),
			})
		}
	}

	s.logger.Debug("network signal computed",
		zap.String("entity_id", entityID),
		zap.Int("partners", len(rel.Partners)),
		zap.Int("competitors", len(rel.Competitors)),
		zap.Int("new_hypotheses", len(rel.NewHypotheses)),
	)
	return rel, nil
}

// scaledPrior maps edge strength into a conservative initial confidence.
func scaledPrior(strength float64) float64 {
	p := 0.20 + 0.20*strength
	if p > 0.40 {
		p = 0.40
	}
	return p
}
