package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/prospect-labs/scout/internal/domain"
)

type EpisodeStore struct {
	db *pgxpool.Pool
}

func NewEpisodeStore(db *pgxpool.Pool) *EpisodeStore {
	return &EpisodeStore{db: db}
}

func (s *EpisodeStore) Create(ctx context.Context, e *domain.Episode) error {
	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	if e.Outcome == "" {
		e.Outcome = domain.OutcomeNeutral
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO episodes (entity_id, session_id, pass, narrative, outcome, occurred_at, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.EntityID, e.SessionID, e.Pass, e.Narrative, string(e.Outcome), e.OccurredAt, embedding,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EpisodeStore) GetByTimeRange(ctx context.Context, entityID string, start, end time.Time) ([]domain.Episode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, entity_id, session_id, pass, narrative, outcome, occurred_at, created_at
		 FROM episodes
		 WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		 ORDER BY occurred_at DESC`,
		entityID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []domain.Episode
	for rows.Next() {
		var e domain.Episode
		var outcome string
		if err := rows.Scan(&e.ID, &e.EntityID, &e.SessionID, &e.Pass,
			&e.Narrative, &outcome, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Outcome = domain.EpisodeOutcome(outcome)
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

func (s *EpisodeStore) FindSimilar(ctx context.Context, entityID string, embedding []float32, threshold float32, limit int) ([]domain.EpisodeWithScore, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT id, entity_id, session_id, pass, narrative, outcome, occurred_at, created_at,
			1 - (embedding <=> $1) AS score
		 FROM episodes
		 WHERE entity_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3
		 ORDER BY score DESC
		 LIMIT $4`,
		vec, entityID, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar episodes query: %w", err)
	}
	defer rows.Close()

	var results []domain.EpisodeWithScore
	for rows.Next() {
		var r domain.EpisodeWithScore
		var outcome string
		if err := rows.Scan(&r.ID, &r.EntityID, &r.SessionID, &r.Pass,
			&r.Narrative, &outcome, &r.OccurredAt, &r.CreatedAt, &r.Score); err != nil {
			return nil, err
		}
		r.Outcome = domain.EpisodeOutcome(outcome)
		results = append(results, r)
	}
	return results, rows.Err()
}
