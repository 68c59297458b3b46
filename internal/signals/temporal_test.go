package signals

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prospect-labs/scout/internal/domain"
)

type fakeEpisodeStore struct {
	episodes []domain.Episode
	err      error
}

func (f *fakeEpisodeStore) Create(_ context.Context, _ *domain.Episode) error { return nil }

func (f *fakeEpisodeStore) GetByTimeRange(_ context.Context, _ string, _, _ time.Time) ([]domain.Episode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.episodes, nil
}

func (f *fakeEpisodeStore) FindSimilar(_ context.Context, _ string, _ []float32, _ float32, _ int) ([]domain.EpisodeWithScore, error) {
	return nil, nil
}

func episodesWith(positives, negatives, neutrals int) []domain.Episode {
	var out []domain.Episode
	for i := 0; i < positives; i++ {
		out = append(out, domain.Episode{Outcome: domain.OutcomePositive})
	}
	for i := 0; i < negatives; i++ {
		out = append(out, domain.Episode{Outcome: domain.OutcomeNegative})
	}
	for i := 0; i < neutrals; i++ {
		out = append(out, domain.Episode{Outcome: domain.OutcomeNeutral})
	}
	return out
}

func TestTemporalBoost(t *testing.T) {
	tests := []struct {
		name      string
		positives int
		negatives int
		neutrals  int
		want      float64
	}{
		{name: "no history", want: 0},
		{name: "momentum", positives: 3, want: 0.06},
		{name: "negatives drag", positives: 3, negatives: 2, want: 0.04},
		{name: "never negative", positives: 1, negatives: 5, want: 0},
		{name: "clamped at cap", positives: 10, want: domain.MaxContextBoost},
		{name: "neutrals do not count", positives: 2, neutrals: 7, want: 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeEpisodeStore{episodes: episodesWith(tt.positives, tt.negatives, tt.neutrals)}
			s := NewTemporalSignal(store, nil)

			boost, err := s.GetBoost(context.Background(), "acme-corp", domain.PassWindow{Pass: 1})
			if err != nil {
				t.Fatalf("GetBoost: %v", err)
			}
			if math.Abs(boost.Boost-tt.want) > 1e-9 {
				t.Errorf("boost = %f, want %f", boost.Boost, tt.want)
			}
			if boost.Narrative == "" {
				t.Error("narrative is empty")
			}
		})
	}
}

func TestTemporalBoostStoreFailure(t *testing.T) {
	s := NewTemporalSignal(&fakeEpisodeStore{err: errors.New("db down")}, nil)
	if _, err := s.GetBoost(context.Background(), "acme-corp", domain.PassWindow{Pass: 1}); err == nil {
		t.Fatal("expected error from failing store")
	}
}
