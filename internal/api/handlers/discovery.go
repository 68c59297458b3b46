package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospect-labs/scout/internal/domain"
	"github.com/prospect-labs/scout/internal/engine"
	"github.com/prospect-labs/scout/internal/store"
)

type DiscoveryHandler struct {
	orchestrator *engine.Orchestrator
	sessions     domain.SessionStore
	logger       *zap.Logger
}

func NewDiscoveryHandler(orchestrator *engine.Orchestrator, sessions domain.SessionStore, logger *zap.Logger) *DiscoveryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryHandler{orchestrator: orchestrator, sessions: sessions, logger: logger}
}

type createDiscoveryRequest struct {
	EntityID  string `json:"entity_id"`
	MaxPasses int    `json:"max_passes,omitempty"`
}

// Create runs a full discovery session synchronously and returns the
// terminal session. Long-running by nature; the request context carries
// through to the engine so a dropped client cancels the session.
func (h *DiscoveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}

	session, err := h.orchestrator.Discover(r.Context(), req.EntityID, req.MaxPasses)
	if err != nil {
		if errors.Is(err, domain.ErrEngineUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "discovery engine unavailable: "+err.Error())
			return
		}
		h.logger.Error("discovery failed", zap.String("entity_id", req.EntityID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *DiscoveryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetReport builds the opportunity report for an archived session.
func (h *DiscoveryHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	report := engine.BuildReport(session, h.orchestrator.CategoryTable())
	writeJSON(w, http.StatusOK, report)
}

// ListByEntity returns recent archived sessions for an entity.
func (h *DiscoveryHandler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.sessions.ListByEntity(r.Context(), entityID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
