package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prospect-labs/scout/internal/domain"
)

type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

func (s *GraphStore) CreateEdge(ctx context.Context, edge *domain.RelationshipEdge) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO entity_edges (entity_id, related_entity_id, relation, strength, note)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (entity_id, related_entity_id, relation) DO UPDATE
		 SET strength = GREATEST(entity_edges.strength, EXCLUDED.strength),
		     note = EXCLUDED.note
		 RETURNING id, created_at`,
		edge.EntityID, edge.RelatedEntityID, string(edge.Relation), edge.Strength, edge.Note,
	).Scan(&edge.ID, &edge.CreatedAt)
}

func (s *GraphStore) GetByEntity(ctx context.Context, entityID string) ([]domain.RelationshipEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, entity_id, related_entity_id, relation, strength, note, created_at
		 FROM entity_edges
		 WHERE entity_id = $1
		 ORDER BY strength DESC, created_at`,
		entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.RelationshipEdge
	for rows.Next() {
		var e domain.RelationshipEdge
		var relation string
		if err := rows.Scan(&e.ID, &e.EntityID, &e.RelatedEntityID,
			&relation, &e.Strength, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Relation = domain.RelationType(relation)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
