package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prospect-labs/scout/internal/domain"
)

type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

// Save archives a terminal session. Pass history and the hypothesis set are
// stored as JSONB; scalar columns are duplicated for querying.
func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	passesJSON, err := json.Marshal(sess.Passes)
	if err != nil {
		return fmt.Errorf("marshal passes: %w", err)
	}
	hypothesesJSON, err := json.Marshal(sess.Hypotheses)
	if err != nil {
		return fmt.Errorf("marshal hypotheses: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (id, entity_id, started_at, completed_at, confidence, reason, passes, hypotheses)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET completed_at = EXCLUDED.completed_at,
		     confidence = EXCLUDED.confidence,
		     reason = EXCLUDED.reason,
		     passes = EXCLUDED.passes,
		     hypotheses = EXCLUDED.hypotheses`,
		sess.ID, sess.EntityID, sess.StartedAt, sess.CompletedAt,
		sess.Confidence, string(sess.Reason), passesJSON, hypothesesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess := &domain.Session{}
	var reason string
	var passesJSON, hypothesesJSON []byte

	err := s.db.QueryRow(ctx,
		`SELECT id, entity_id, started_at, completed_at, confidence, reason, passes, hypotheses
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.EntityID, &sess.StartedAt, &sess.CompletedAt,
		&sess.Confidence, &reason, &passesJSON, &hypothesesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess.Reason = domain.TerminationReason(reason)
	if len(passesJSON) > 0 {
		if err := json.Unmarshal(passesJSON, &sess.Passes); err != nil {
			return nil, fmt.Errorf("unmarshal passes: %w", err)
		}
	}
	if len(hypothesesJSON) > 0 {
		if err := json.Unmarshal(hypothesesJSON, &sess.Hypotheses); err != nil {
			return nil, fmt.Errorf("unmarshal hypotheses: %w", err)
		}
	}
	return sess, nil
}

func (s *SessionStore) ListByEntity(ctx context.Context, entityID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, entity_id, started_at, completed_at, confidence, reason, passes, hypotheses
		 FROM sessions WHERE entity_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2`,
		entityID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var reason string
		var passesJSON, hypothesesJSON []byte
		if err := rows.Scan(&sess.ID, &sess.EntityID, &sess.StartedAt, &sess.CompletedAt,
			&sess.Confidence, &reason, &passesJSON, &hypothesesJSON); err != nil {
			return nil, err
		}
		sess.Reason = domain.TerminationReason(reason)
		if len(passesJSON) > 0 {
			if err := json.Unmarshal(passesJSON, &sess.Passes); err != nil {
				return nil, fmt.Errorf("unmarshal passes: %w", err)
			}
		}
		if len(hypothesesJSON) > 0 {
			if err := json.Unmarshal(hypothesesJSON, &sess.Hypotheses); err != nil {
				return nil, fmt.Errorf("unmarshal hypotheses: %w", err)
			}
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
