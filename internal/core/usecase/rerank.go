package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

const (
	defaultRerankPoolSize = 5
	defaultRerankCeiling  = 20
	neutralRelevance      = 5.0
)

// RerankingStrategy scores an oversized candidate pool with one model
// call per candidate. The pool ceiling bounds the per-request model cost.
type RerankingStrategy struct {
	deps     Deps
	poolSize int
	ceiling  int
}

func NewRerankingStrategy(deps Deps, poolSize, poolCeiling int) *RerankingStrategy {
	return &RerankingStrategy{deps: deps.normalize(), poolSize: poolSize, ceiling: poolCeiling}
}

func (s *RerankingStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	pool := s.poolSize
	if pool < k {
		pool = k
	}
	if pool > s.ceiling {
		pool = s.ceiling
	}

	candidates, serr := s.deps.nearest(ctx, query, pool)
	if serr != nil {
		return nil, serr
	}
	candidates = dedupeByID(candidates)
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredPassage, 0, len(candidates))
	for _, candidate := range candidates {
		score, ok := s.scoreRelevance(ctx, query, candidate.Passage)
		if !ok {
			continue
		}
		scored = append(scored, domain.ScoredPassage{Passage: candidate.Passage, Score: score})
	}

	// Every scoring call failed: fall back to the pool's similarity order
	// rather than failing the request.
	if len(scored) == 0 {
		s.deps.Monitor.RecordDegradation(domain.StrategyReranking, "scoring_exhausted")
		return stampSource(truncate(candidates, k), domain.StrategyReranking), nil
	}

	sortByScoreFirstSeen(scored)
	return stampSource(truncate(scored, k), domain.StrategyReranking), nil
}

// scoreRelevance returns ok=false only when the model call itself failed;
// unparsable responses are a logged anomaly that degrades to a neutral
// mid-scale score.
func (s *RerankingStrategy) scoreRelevance(ctx context.Context, query string, p domain.Passage) (float64, bool) {
	raw, serr := s.deps.complete(ctx, "model.relevance_score", buildRelevancePrompt(query, p.Text))
	if serr != nil {
		s.deps.Logger.Warn("relevance_call_failed", "passage_id", p.ID, "error", serr)
		return 0, false
	}

	score, err := parseRelevanceScore(raw)
	if err != nil {
		s.deps.Logger.Warn("relevance_parse_anomaly", "passage_id", p.ID, "error", err)
		s.deps.Monitor.RecordParseAnomaly(domain.StrategyReranking, "relevance_score")
		return neutralRelevance, true
	}
	return score, true
}

func (s *RerankingStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategyReranking,
		Description: "Model relevance scoring over an oversized candidate pool",
		Tunables: map[string]any{
			"rerank_pool_size":    s.poolSize,
			"rerank_pool_ceiling": s.ceiling,
		},
	}
}
