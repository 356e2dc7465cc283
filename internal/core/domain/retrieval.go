package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ScoredPassage carries a strategy-local score. Scores are not comparable
// across strategies.
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
}

// RetrievalRequest is the caller-facing retrieval input. Strategy and
// Config are optional per-request overrides of the active strategy.
type RetrievalRequest struct {
	Query    string         `json:"query"`
	K        int            `json:"k"`
	Strategy string         `json:"strategy,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// RetrievalResult holds at most K passages, unique by passage id, in
// descending score order with first-seen tie-breaking.
type RetrievalResult struct {
	Passages       []ScoredPassage `json:"passages"`
	Strategy       string          `json:"strategy"`
	Degraded       bool            `json:"degraded,omitempty"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
}

// FilterPredicate is one extracted self-query constraint on a metadata
// field: either an exact value or an inclusive numeric range.
type FilterPredicate struct {
	Equals any
	Min    *float64
	Max    *float64
}

// Matches reports whether the passage satisfies the predicate for field.
// A passage without the field never matches.
func (fp FilterPredicate) Matches(p Passage, field string) bool {
	v, ok := p.Metadata[field]
	if !ok {
		return false
	}

	if fp.Min != nil || fp.Max != nil {
		n, numeric := numberFromMetadataValue(v)
		if !numeric {
			return false
		}
		if fp.Min != nil && n < *fp.Min {
			return false
		}
		if fp.Max != nil && n > *fp.Max {
			return false
		}
		return true
	}

	if fp.Equals == nil {
		return true
	}
	if want, wantNum := numberFromMetadataValue(fp.Equals); wantNum {
		if got, gotNum := numberFromMetadataValue(v); gotNum {
			return got == want
		}
	}
	return strings.EqualFold(stringifyMetadataValue(v), stringifyMetadataValue(fp.Equals))
}

func stringifyMetadataValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func numberFromMetadataValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
