package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// Factory constructs strategy instances by name. Unknown names resolve to
// the semantic strategy with a logged warning so callers stay available.
// Out-of-range tunables clamp to safe defaults with a warning; values of
// the wrong shape (non-numeric counts, non-positive sizes) are rejected
// with ErrInvalidConfig.
type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) *Factory {
	return &Factory{deps: deps.normalize()}
}

// Create builds a strategy. The returned name is the resolved one, which
// differs from raw input only for unknown names.
func (f *Factory) Create(rawName string, config map[string]any) (Strategy, domain.StrategyName, error) {
	name, known := domain.ParseStrategyName(rawName)
	if !known && strings.TrimSpace(rawName) != "" {
		f.deps.Logger.Warn("unknown_strategy", "requested", rawName, "substituted", string(name))
	}

	switch name {
	case domain.StrategySemantic:
		return NewSemanticStrategy(f.deps), name, nil

	case domain.StrategyHybrid:
		weight, err := f.floatTunable(name, config, "semantic_weight", defaultSemanticWeight, 0, 1)
		if err != nil {
			return nil, name, err
		}
		multiplier, err := f.intTunable(name, config, "candidate_multiplier", defaultCandidateMultiplier, 10)
		if err != nil {
			return nil, name, err
		}
		return NewHybridStrategy(f.deps, weight, multiplier), name, nil

	case domain.StrategyQueryExpansion:
		count, err := f.intTunable(name, config, "expansion_count", defaultExpansionCount, 10)
		if err != nil {
			return nil, name, err
		}
		return NewQueryExpansionStrategy(f.deps, count), name, nil

	case domain.StrategyReranking:
		pool, err := f.intTunable(name, config, "rerank_pool_size", defaultRerankPoolSize, defaultRerankCeiling)
		if err != nil {
			return nil, name, err
		}
		ceiling, err := f.intTunable(name, config, "rerank_pool_ceiling", defaultRerankCeiling, 100)
		if err != nil {
			return nil, name, err
		}
		return NewRerankingStrategy(f.deps, pool, ceiling), name, nil

	case domain.StrategySelfQuery:
		fields, err := f.stringListTunable(name, config, "metadata_fields", DefaultMetadataFields)
		if err != nil {
			return nil, name, err
		}
		multiplier, err := f.intTunable(name, config, "candidate_multiplier", defaultCandidateMultiplier, 10)
		if err != nil {
			return nil, name, err
		}
		return NewSelfQueryStrategy(f.deps, fields, multiplier), name, nil

	case domain.StrategyMultiHop:
		hops, err := f.intTunable(name, config, "max_hops", defaultMaxHops, 10)
		if err != nil {
			return nil, name, err
		}
		return NewMultiHopStrategy(f.deps, hops), name, nil
	}

	// Unreachable: ParseStrategyName only yields the enumerated set.
	return NewSemanticStrategy(f.deps), domain.StrategySemantic, nil
}

// ListStrategies describes every strategy built with default tunables.
func (f *Factory) ListStrategies() []domain.StrategyInfo {
	out := make([]domain.StrategyInfo, 0, len(domain.StrategyNames()))
	for _, name := range domain.StrategyNames() {
		strategy, _, err := f.Create(string(name), nil)
		if err != nil {
			continue
		}
		out = append(out, strategy.Describe())
	}
	return out
}

func (f *Factory) floatTunable(strategy domain.StrategyName, config map[string]any, key string, fallback, min, max float64) (float64, error) {
	raw, ok := config[key]
	if !ok {
		return fallback, nil
	}
	v, ok := asFloat(raw)
	if !ok {
		return 0, domain.WrapError(domain.ErrInvalidConfig, string(strategy),
			fmt.Errorf("%s: expected number, got %T", key, raw))
	}
	if v < min || v > max {
		f.deps.Logger.Warn("tunable_clamped", "strategy", string(strategy), "tunable", key, "value", v, "default", fallback)
		return fallback, nil
	}
	return v, nil
}

func (f *Factory) intTunable(strategy domain.StrategyName, config map[string]any, key string, fallback, max int) (int, error) {
	raw, ok := config[key]
	if !ok {
		return fallback, nil
	}
	v, ok := asFloat(raw)
	if !ok || v != float64(int(v)) || int(v) <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidConfig, string(strategy),
			fmt.Errorf("%s: expected positive integer, got %v", key, raw))
	}
	if int(v) > max {
		f.deps.Logger.Warn("tunable_clamped", "strategy", string(strategy), "tunable", key, "value", int(v), "default", max)
		return max, nil
	}
	return int(v), nil
}

func (f *Factory) stringListTunable(strategy domain.StrategyName, config map[string]any, key string, fallback []string) ([]string, error) {
	raw, ok := config[key]
	if !ok {
		return fallback, nil
	}

	var fields []string
	switch v := raw.(type) {
	case []string:
		fields = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, domain.WrapError(domain.ErrInvalidConfig, string(strategy),
					fmt.Errorf("%s: expected strings, got %T", key, item))
			}
			fields = append(fields, s)
		}
	case string:
		fields = strings.Split(v, ",")
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, string(strategy),
			fmt.Errorf("%s: expected string list, got %T", key, raw))
	}

	out := fields[:0:0]
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	if len(out) == 0 {
		return fallback, nil
	}
	return out, nil
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
