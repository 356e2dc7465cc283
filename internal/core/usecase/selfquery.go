package usecase

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// DefaultMetadataFields matches the fields most corpora carry.
var DefaultMetadataFields = []string{"source", "page", "type", "date"}

// SelfQueryStrategy asks the model to turn free-text constraints into
// structured metadata predicates and filters an oversized candidate pool
// with them.
type SelfQueryStrategy struct {
	deps       Deps
	fields     []string
	multiplier int
}

func NewSelfQueryStrategy(deps Deps, metadataFields []string, candidateMultiplier int) *SelfQueryStrategy {
	return &SelfQueryStrategy{
		deps:       deps.normalize(),
		fields:     metadataFields,
		multiplier: candidateMultiplier,
	}
}

func (s *SelfQueryStrategy) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	pool, serr := s.deps.nearest(ctx, query, k*s.multiplier)
	if serr != nil {
		return nil, serr
	}
	pool = dedupeByID(pool)

	predicates := s.extractPredicates(ctx, query)
	filtered := applyPredicates(pool, predicates)

	// Over-filtering must not empty the result: fall back to the
	// unfiltered pool.
	if len(filtered) == 0 && len(pool) > 0 {
		if len(predicates) > 0 {
			s.deps.Logger.Info("self_query_filter_matched_nothing", "predicates", len(predicates))
			s.deps.Monitor.RecordDegradation(domain.StrategySelfQuery, "filter_matched_nothing")
		}
		filtered = pool
	}

	return stampSource(truncate(filtered, k), domain.StrategySelfQuery), nil
}

// extractPredicates treats the model as an untrusted parser: any failure
// yields an empty predicate set, never an error.
func (s *SelfQueryStrategy) extractPredicates(ctx context.Context, query string) map[string]domain.FilterPredicate {
	raw, serr := s.deps.complete(ctx, "model.extract_filters", buildFilterExtractionPrompt(query, s.fields))
	if serr != nil {
		s.deps.Logger.Warn("filter_extraction_failed", "error", serr)
		s.deps.Monitor.RecordDegradation(domain.StrategySelfQuery, "filter_extraction_failed")
		return nil
	}

	predicates, err := parseFilterPredicates(raw, s.fields)
	if err != nil {
		s.deps.Logger.Warn("filter_parse_anomaly", "error", err)
		s.deps.Monitor.RecordParseAnomaly(domain.StrategySelfQuery, "filter_json")
		return nil
	}
	return predicates
}

func applyPredicates(pool []domain.ScoredPassage, predicates map[string]domain.FilterPredicate) []domain.ScoredPassage {
	if len(predicates) == 0 {
		return pool
	}
	out := make([]domain.ScoredPassage, 0, len(pool))
	for _, hit := range pool {
		matches := true
		for field, pred := range predicates {
			if !pred.Matches(hit.Passage, field) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, hit)
		}
	}
	return out
}

func (s *SelfQueryStrategy) Describe() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        domain.StrategySelfQuery,
		Description: "Model-extracted metadata predicates applied to the candidate pool",
		Tunables: map[string]any{
			"metadata_fields":      s.fields,
			"candidate_multiplier": s.multiplier,
		},
	}
}
