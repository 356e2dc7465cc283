package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// SemanticStrategy is plain nearest-neighbor similarity search and the
// fallback target for every other strategy.
type SemanticStrategy struct {
	deps Deps
}

func NewSemanticStrategy(deps Deps) *SemanticStrategy {
	return &SemanticStrategy{deps: deps.normalize()}
}

func (s *SemanticStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	hits, serr := s.deps.nearest(ctx, query, k)
	if serr != nil {
		return nil, serr
	}
	hits = truncate(dedupeByID(hits), k)
	return stampSource(hits, domain.StrategySemantic), nil
}

func (s *SemanticStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategySemantic,
		Description: "Vector similarity search over the passage index",
	}
}
