package signals

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prospect-labs/scout/internal/domain"
)

const (
	// lookback window for past episodes when scoring momentum.
	temporalLookback = 90 * 24 * time.Hour

	boostPerPositive = 0.02
	dragPerNegative  = 0.01
)

// TemporalSignal derives a bounded confidence boost from the recent episode
// history of an entity. A run of positive investigation outcomes indicates
// momentum; negatives drag the boost back toward zero. The boost is already
// clamped here, and clamped again by the ledger.
type TemporalSignal struct {
	episodes domain.EpisodeStore
	logger   *zap.Logger
}

func NewTemporalSignal(episodes domain.EpisodeStore, logger *zap.Logger) *TemporalSignal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemporalSignal{episodes: episodes, logger: logger}
}

func (s *TemporalSignal) GetBoost(ctx context.Context, entityID string, window domain.PassWindow) (domain.TemporalBoost, error) {
	end := window.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := end.Add(-temporalLookback)

	episodes, err := s.episodes.GetByTimeRange(ctx, entityID, start, end)
	if err != nil {
		return domain.TemporalBoost{}, fmt.Errorf("load episodes: %w", err)
	}
	if len(episodes) == 0 {
		return domain.TemporalBoost{Narrative: "no prior investigation history"}, nil
	}

	var positives, negatives int
	for _, ep := range episodes {
		switch ep.Outcome {
		case domain.OutcomePositive:
			positives++
		case domain.OutcomeNegative:
			negatives++
		}
	}

	boost := float64(positives)*boostPerPositive - float64(negatives)*dragPerNegative
	if boost < 0 {
		boost = 0
	}
	if boost > domain.MaxContextBoost {
		boost = domain.MaxContextBoost
	}

	narrative := fmt.Sprintf("%d episodes in lookback window: %d positive, %d negative", len(episodes), positives, negatives)
	s.logger.Debug("temporal signal computed",
		zap.String("entity_id", entityID),
		zap.Int("pass", window.Pass),
		zap.Float64("boost", boost),
	)

	return domain.TemporalBoost{Boost: boost, Narrative: narrative}, nil
}
