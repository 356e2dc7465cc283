package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

const (
	defaultSemanticWeight      = 0.6
	defaultCandidateMultiplier = 3
)

// HybridStrategy fuses semantic and lexical rankings. Raw similarity and
// keyword scores live on different scales, so both candidate lists are
// min-max normalized before the weighted combination.
type HybridStrategy struct {
	deps       Deps
	weight     float64
	multiplier int
}

func NewHybridStrategy(deps Deps, semanticWeight float64, candidateMultiplier int) *HybridStrategy {
	return &HybridStrategy{
		deps:       deps.normalize(),
		weight:     semanticWeight,
		multiplier: candidateMultiplier,
	}
}

func (s *HybridStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	poolSize := k * s.multiplier

	semantic, serr := s.deps.nearest(ctx, query, poolSize)
	if serr != nil {
		return nil, serr
	}
	semantic = dedupeByID(semantic)

	index, err := s.deps.Lexical(ctx)
	if err != nil || index == nil {
		s.deps.Logger.Warn("lexical_index_unavailable", "error", err)
		s.deps.Monitor.RecordDegradation(domain.StrategyHybrid, "lexical_index_unavailable")
		return stampSource(truncate(semantic, k), domain.StrategyHybrid), nil
	}
	lexical := index.Score(query, poolSize)

	fused := fuseWeighted(semantic, lexical, s.weight)
	return stampSource(truncate(fused, k), domain.StrategyHybrid), nil
}

// fuseWeighted combines the two normalized score maps. A passage missing
// from one list contributes 0 for that component. First-seen order
// (semantic list first) breaks ties.
func fuseWeighted(semantic, lexical []domain.ScoredPassage, weight float64) []domain.ScoredPassage {
	semNorm := minMaxNormalize(semantic)
	lexNorm := minMaxNormalize(lexical)

	combined := make([]domain.ScoredPassage, 0, len(semantic)+len(lexical))
	seen := make(map[string]bool, len(semantic)+len(lexical))

	appendHits := func(hits []domain.ScoredPassage) {
		for _, h := range hits {
			id := h.Passage.ID
			if seen[id] {
				continue
			}
			seen[id] = true
			combined = append(combined, domain.ScoredPassage{
				Passage: h.Passage,
				Score:   weight*semNorm[id] + (1-weight)*lexNorm[id],
			})
		}
	}
	appendHits(semantic)
	appendHits(lexical)

	sortByScoreFirstSeen(combined)
	return combined
}

func (s *HybridStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategyHybrid,
		Description: "Weighted fusion of semantic similarity and lexical keyword ranking",
		Tunables: map[string]any{
			"semantic_weight":      s.weight,
			"candidate_multiplier": s.multiplier,
		},
	}
}
