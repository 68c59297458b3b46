package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStore archives terminal sessions. The archive format is opaque to
// the engine; the engine only guarantees the Session snapshot it hands over.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	ListByEntity(ctx context.Context, entityID string, limit int) ([]Session, error)
}

// EpisodeOutcome is the valence of a recorded pass episode.
type EpisodeOutcome string

const (
	OutcomePositive EpisodeOutcome = "positive"
	OutcomeNegative EpisodeOutcome = "negative"
	OutcomeNeutral  EpisodeOutcome = "neutral"
)

// Episode records one completed pass as a temporal history item. Episodes
// accumulate across sessions and feed the temporal context provider.
type Episode struct {
	ID         uuid.UUID      `json:"id"`
	EntityID   string         `json:"entity_id"`
	SessionID  uuid.UUID      `json:"session_id"`
	Pass       int            `json:"pass"`
	Narrative  string         `json:"narrative"`
	Outcome    EpisodeOutcome `json:"outcome"`
	Embedding  []float32      `json:"-"`
	OccurredAt time.Time      `json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EpisodeWithScore pairs an episode with its similarity score.
type EpisodeWithScore struct {
	Episode
	Score float32 `json:"score"`
}

// EpisodeStore persists pass episodes and serves temporal queries.
type EpisodeStore interface {
	Create(ctx context.Context, e *Episode) error
	GetByTimeRange(ctx context.Context, entityID string, start, end time.Time) ([]Episode, error)
	FindSimilar(ctx context.Context, entityID string, embedding []float32, threshold float32, limit int) ([]EpisodeWithScore, error)
}

// RelationType classifies an edge between two entities.
type RelationType string

const (
	RelationPartner    RelationType = "partner"
	RelationCompetitor RelationType = "competitor"
	RelationCustomer   RelationType = "customer"
	RelationSupplier   RelationType = "supplier"
)

// RelationshipEdge is one directed edge in the entity relationship graph.
type RelationshipEdge struct {
	ID              uuid.UUID    `json:"id"`
	EntityID        string       `json:"entity_id"`
	RelatedEntityID string       `json:"related_entity_id"`
	Relation        RelationType `json:"relation"`
	Strength        float64      `json:"strength"`
	Note            string       `json:"note,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// GraphStore persists entity relationship edges and serves the network
// context provider.
type GraphStore interface {
	CreateEdge(ctx context.Context, e *RelationshipEdge) error
	GetByEntity(ctx context.Context, entityID string) ([]RelationshipEdge, error)
}
