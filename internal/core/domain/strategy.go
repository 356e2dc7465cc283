package domain

import "strings"

// StrategyName enumerates the fixed, closed set of retrieval strategies.
type StrategyName string

const (
	StrategySemantic       StrategyName = "semantic"
	StrategyHybrid         StrategyName = "hybrid"
	StrategyQueryExpansion StrategyName = "query_expansion"
	StrategyReranking      StrategyName = "reranking"
	StrategySelfQuery      StrategyName = "self_query"
	StrategyMultiHop       StrategyName = "multihop"
)

// StrategyNames lists every known strategy in a stable order.
func StrategyNames() []StrategyName {
	return []StrategyName{
		StrategySemantic,
		StrategyHybrid,
		StrategyQueryExpansion,
		StrategyReranking,
		StrategySelfQuery,
		StrategyMultiHop,
	}
}

// ParseStrategyName normalizes raw into a known name. ok is false for
// unrecognized input; callers substitute StrategySemantic.
func ParseStrategyName(raw string) (StrategyName, bool) {
	name := StrategyName(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range StrategyNames() {
		if name == known {
			return known, true
		}
	}
	return StrategySemantic, false
}

// StrategyInfo is the introspection shape returned by Describe.
type StrategyInfo struct {
	Name        StrategyName   `json:"name"`
	Description string         `json:"description"`
	Tunables    map[string]any `json:"tunables,omitempty"`
}
