package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prospect-labs/scout/internal/domain"
)

type GraphHandler struct {
	graph domain.GraphStore
}

func NewGraphHandler(graph domain.GraphStore) *GraphHandler {
	return &GraphHandler{graph: graph}
}

type createEdgeRequest struct {
	RelatedEntityID string  `json:"related_entity_id"`
	Relation        string  `json:"relation"`
	Strength        float64 `json:"strength"`
	Note            string  `json:"note,omitempty"`
}

func validRelation(r string) bool {
	switch domain.RelationType(r) {
	case domain.RelationPartner, domain.RelationCompetitor, domain.RelationCustomer, domain.RelationSupplier:
		return true
	}
	return false
}

// CreateEdge records a relationship edge that feeds the network context
// provider on later discoveries.
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RelatedEntityID == "" {
		writeError(w, http.StatusBadRequest, "related_entity_id is required")
		return
	}
	if !validRelation(req.Relation) {
		writeError(w, http.StatusBadRequest, "relation must be one of: partner, competitor, customer, supplier")
		return
	}
	if req.Strength < 0 || req.Strength > 1 {
		writeError(w, http.StatusBadRequest, "strength must be in [0,1]")
		return
	}

	edge := &domain.RelationshipEdge{
		EntityID:        entityID,
		RelatedEntityID: req.RelatedEntityID,
		Relation:        domain.RelationType(req.Relation),
		Strength:        req.Strength,
		Note:            req.Note,
	}
	if err := h.graph.CreateEdge(r.Context(), edge); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create edge")
		return
	}

	writeJSON(w, http.StatusCreated, edge)
}

// ListEdges returns the relationship neighborhood of an entity.
func (h *GraphHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	edges, err := h.graph.GetByEntity(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list edges")
		return
	}
	if edges == nil {
		edges = []domain.RelationshipEdge{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}
