package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

const defaultMaxHops = 3

// MultiHopStrategy decomposes a complex question into sub-questions,
// retrieves once per hop and merges cross-referenced passages to the top.
type MultiHopStrategy struct {
	deps    Deps
	maxHops int
}

func NewMultiHopStrategy(deps Deps, maxHops int) *MultiHopStrategy {
	return &MultiHopStrategy{deps: deps.normalize(), maxHops: maxHops}
}

func (s *MultiHopStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	queries := append([]string{query}, s.decompose(ctx, query)...)

	lists, allFailed, firstErr := s.deps.concurrentNearest(ctx, queries, k)
	if allFailed {
		return nil, firstErr
	}

	merged := mergeByFrequency(lists)
	return stampSource(truncate(merged, k), domain.StrategyMultiHop), nil
}

// decompose degrades to zero sub-questions on any model or parse failure,
// which leaves the strategy equivalent to the base retriever.
func (s *MultiHopStrategy) decompose(ctx context.Context, query string) []string {
	raw, serr := s.deps.complete(ctx, "model.decompose", buildDecompositionPrompt(query, s.maxHops))
	if serr != nil {
		s.deps.Logger.Warn("decomposition_failed", "error", serr)
		s.deps.Monitor.RecordDegradation(domain.StrategyMultiHop, "decomposition_failed")
		return nil
	}

	subs := parseQuestionLines(raw, s.maxHops)
	if len(subs) == 0 {
		s.deps.Logger.Warn("decomposition_empty", "response_bytes", len(raw))
		s.deps.Monitor.RecordParseAnomaly(domain.StrategyMultiHop, "empty_sub_questions")
	}
	return subs
}

func (s *MultiHopStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategyMultiHop,
		Description: "Question decomposition with per-hop retrieval and frequency merging",
		Tunables: map[string]any{
			"max_hops": s.maxHops,
		},
	}
}
