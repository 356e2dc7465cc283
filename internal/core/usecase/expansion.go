package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

const defaultExpansionCount = 3

// QueryExpansionStrategy rewrites the query into paraphrases and ranks
// passages by how many query variants retrieve them.
type QueryExpansionStrategy struct {
	deps  Deps
	count int
}

func NewQueryExpansionStrategy(deps Deps, expansionCount int) *QueryExpansionStrategy {
	return &QueryExpansionStrategy{deps: deps.normalize(), count: expansionCount}
}

func (s *QueryExpansionStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	queries := append([]string{query}, s.paraphrase(ctx, query)...)

	lists, allFailed, firstErr := s.deps.concurrentNearest(ctx, queries, k)
	if allFailed {
		return nil, firstErr
	}

	merged := mergeByFrequency(lists)
	return stampSource(truncate(merged, k), domain.StrategyQueryExpansion), nil
}

// paraphrase never fails the call: any model or parse problem yields an
// empty variant list and the original query proceeds alone.
func (s *QueryExpansionStrategy) paraphrase(ctx context.Context, query string) []string {
	raw, serr := s.deps.complete(ctx, "model.paraphrase", buildParaphrasePrompt(query, s.count))
	if serr != nil {
		s.deps.Logger.Warn("paraphrase_failed", "error", serr)
		s.deps.Monitor.RecordDegradation(domain.StrategyQueryExpansion, "paraphrase_failed")
		return nil
	}

	variants := parseQuestionLines(raw, s.count)
	if len(variants) == 0 {
		s.deps.Logger.Warn("paraphrase_empty", "response_bytes", len(raw))
		s.deps.Monitor.RecordParseAnomaly(domain.StrategyQueryExpansion, "empty_paraphrases")
	}
	return variants
}

func (s *QueryExpansionStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategyQueryExpansion,
		Description: "Model-generated query paraphrases merged by retrieval frequency",
		Tunables: map[string]any{
			"expansion_count": s.count,
		},
	}
}
