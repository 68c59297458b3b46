package signals

import (
	"context"
	"errors"
	"testing"

	"github.com/prospect-labs/scout/internal/domain"
)

type fakeGraphStore struct {
	edges []domain.RelationshipEdge
	err   error
}

func (f *fakeGraphStore) CreateEdge(_ context.Context, _ *domain.RelationshipEdge) error { return nil }

func (f *fakeGraphStore) GetByEntity(_ context.Context, _ string) ([]domain.RelationshipEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.edges, nil
}

func edge(relation domain.RelationType, related string, strength float64) domain.RelationshipEdge {
	return domain.RelationshipEdge{
		EntityID:        "acme-corp",
		RelatedEntityID: related,
		Relation:        relation,
		Strength:        strength,
	}
}

func TestNetworkRelationships(t *testing.T) {
	store := &fakeGraphStore{edges: []domain.RelationshipEdge{
		edge(domain.RelationPartner, "globex", 0.9),
		edge(domain.RelationPartner, "initech", 0.5),
		edge(domain.RelationCompetitor, "hooli", 0.8),
		edge(domain.RelationCustomer, "pied-piper", 0.7),
		edge(domain.RelationSupplier, "vandelay", 0.6),
	}}
	s := NewNetworkSignal(store, nil)

	rels, err := s.GetRelationships(context.Background(), "acme-corp")
	if err != nil {
		t.Fatalf("GetRelationships: %v", err)
	}

	if len(rels.Partners) != 2 {
		t.Errorf("partners = %v, want 2", rels.Partners)
	}
	if len(rels.Competitors) != 1 || rels.Competitors[0] != "hooli" {
		t.Errorf("competitors = %v, want [hooli]", rels.Competitors)
	}
	if len(rels.NewHypotheses) != 2 {
		t.Fatalf("new hypotheses = %d, want 2 (customer + supplier)", len(rels.NewHypotheses))
	}

	categories := map[domain.Category]bool{}
	for _, p := range rels.NewHypotheses {
		categories[p.Category] = true
		if p.InitialConfidence <= 0 || p.InitialConfidence > 0.40 {
			t.Errorf("initial confidence %f outside conservative range", p.InitialConfidence)
		}
	}
	if !categories[domain.CategoryExpansion] || !categories[domain.CategoryIntegration] {
		t.Errorf("categories = %v, want expansion and integration", categories)
	}
}

func TestNetworkFiltersWeakEdges(t *testing.T) {
	store := &fakeGraphStore{edges: []domain.RelationshipEdge{
		edge(domain.RelationPartner, "noise-co", 0.05),
	}}
	s := NewNetworkSignal(store, nil)

	rels, err := s.GetRelationships(context.Background(), "acme-corp")
	if err != nil {
		t.Fatalf("GetRelationships: %v", err)
	}
	if len(rels.Partners) != 0 {
		t.Errorf("partners = %v, want weak edge filtered out", rels.Partners)
	}
}

func TestNetworkStoreFailure(t *testing.T) {
	s := NewNetworkSignal(&fakeGraphStore{err: errors.New("db down")}, nil)
	if _, err := s.GetRelationships(context.Background(), "acme-corp"); err == nil {
		t.Fatal("expected error from failing store")
	}
}
