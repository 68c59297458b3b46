package engine

import (
	"bytes"
	"sort"

	"github.com/prospect-labs/scout/internal/domain"
)

// Expected-information-gain ranking. Pure functions: identical ledger
// snapshots produce identical rankings, which is what lets passes be
// reproduced in tests.

// Novelty decays with how often a hypothesis has been investigated:
// 1 / (1 + frequencySeen).
func Novelty(frequencySeen int) float64 {
	if frequencySeen < 0 {
		frequencySeen = 0
	}
	return 1.0 / (1.0 + float64(frequencySeen))
}

// InformationGain scores how much a pass investigating the hypothesis is
// expected to teach: (1 - confidence) * novelty * categoryWeight.
func InformationGain(h domain.Hypothesis, table domain.CategoryTable) float64 {
	return (1.0 - h.Confidence) * Novelty(h.FrequencySeen) * table.Weight(h.Category)
}

// Ranked pairs a hypothesis with its information-gain score.
type Ranked struct {
	domain.Hypothesis
	Score float64
}

// Rank orders hypotheses by descending information gain. Ties break by
// earliest origin pass, then by identifier, producing the total order the
// next-pass selection requires.
func Rank(hs []domain.Hypothesis, table domain.CategoryTable) []Ranked {
	ranked := make([]Ranked, 0, len(hs))
	for _, h := range hs {
		ranked = append(ranked, Ranked{Hypothesis: h, Score: InformationGain(h, table)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].OriginPass != ranked[j].OriginPass {
			return ranked[i].OriginPass < ranked[j].OriginPass
		}
		return bytes.Compare(ranked[i].ID[:], ranked[j].ID[:]) < 0
	})
	return ranked
}

// TopK returns the first k hypotheses of a ranking. k <= 0 means no limit.
func TopK(ranked []Ranked, k int) []domain.Hypothesis {
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	out := make([]domain.Hypothesis, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.Hypothesis)
	}
	return out
}
