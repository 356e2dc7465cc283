package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// Model output crosses an untrusted boundary: every parser here degrades
// to an empty or neutral result instead of propagating a hard error.

// parseQuestionLines extracts up to max non-empty lines, stripping common
// numbering and bullet prefixes the model adds despite instructions.
func parseQuestionLines(raw string, max int) []string {
	if max <= 0 {
		return nil
	}
	out := make([]string, 0, max)
	for _, line := range strings.Split(raw, "\n") {
		line = stripListPrefix(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}

func stripListPrefix(line string) string {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}

	// "1. question" / "2) question"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// parseRelevanceScore pulls the first numeric token out of the response
// and clamps it to the fixed 0-10 scale.
func parseRelevanceScore(raw string) (float64, error) {
	token := firstNumericToken(raw)
	if token == "" {
		return 0, fmt.Errorf("no numeric token in %q", truncateForError(raw))
	}
	score, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", token, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

func firstNumericToken(raw string) string {
	var b strings.Builder
	inNumber := false
	for _, r := range raw {
		isDigit := r >= '0' && r <= '9'
		if isDigit || (inNumber && r == '.') {
			b.WriteRune(r)
			inNumber = true
			continue
		}
		if inNumber {
			break
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}

// parseFilterPredicates decodes the model's filter JSON, keeping only the
// declared fields. Scalars become equality predicates; objects with
// gte/lte (or min/max) bounds become range predicates. Anything else is
// ignored.
func parseFilterPredicates(raw string, fields []string) (map[string]domain.FilterPredicate, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("decode filter json: %w", err)
	}

	allowed := make(map[string]string, len(fields))
	for _, f := range fields {
		allowed[strings.ToLower(strings.TrimSpace(f))] = strings.TrimSpace(f)
	}

	out := make(map[string]domain.FilterPredicate)
	for key, value := range decoded {
		field, ok := allowed[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			out[field] = domain.FilterPredicate{Equals: v}
		case float64, bool:
			out[field] = domain.FilterPredicate{Equals: v}
		case map[string]any:
			pred := rangePredicate(v)
			if pred.Min != nil || pred.Max != nil {
				out[field] = pred
			}
		}
	}
	return out, nil
}

func rangePredicate(bounds map[string]any) domain.FilterPredicate {
	var pred domain.FilterPredicate
	for key, value := range bounds {
		n, ok := value.(float64)
		if !ok {
			continue
		}
		bound := n
		switch strings.ToLower(key) {
		case "gte", "min", "from":
			pred.Min = &bound
		case "lte", "max", "to":
			pred.Max = &bound
		}
	}
	return pred
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncateForError(raw string) string {
	const limit = 80
	raw = strings.TrimSpace(raw)
	if len(raw) > limit {
		return raw[:limit]
	}
	return raw
}
