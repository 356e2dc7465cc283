package domain

import "testing"

func TestFilterPredicateMatches(t *testing.T) {
	p := Passage{ID: "p1", Metadata: map[string]any{
		"source": "Wiki",
		"page":   float64(7),
		"year":   "2023",
	}}

	minV := func(v float64) *float64 { return &v }

	cases := []struct {
		name  string
		field string
		pred  FilterPredicate
		want  bool
	}{
		{"string equality case-insensitive", "source", FilterPredicate{Equals: "wiki"}, true},
		{"string mismatch", "source", FilterPredicate{Equals: "blog"}, false},
		{"numeric equality", "page", FilterPredicate{Equals: float64(7)}, true},
		{"numeric equality from int", "page", FilterPredicate{Equals: 7}, true},
		{"numeric string coerced", "year", FilterPredicate{Equals: float64(2023)}, true},
		{"range inside", "page", FilterPredicate{Min: minV(5), Max: minV(10)}, true},
		{"range below", "page", FilterPredicate{Min: minV(8)}, false},
		{"range above", "page", FilterPredicate{Max: minV(6)}, false},
		{"range on non-numeric", "source", FilterPredicate{Min: minV(1)}, false},
		{"missing field", "author", FilterPredicate{Equals: "x"}, false},
	}
	for _, tc := range cases {
		if got := tc.pred.Matches(p, tc.field); got != tc.want {
			t.Fatalf("%s: Matches() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseStrategyNameNormalizes(t *testing.T) {
	name, ok := ParseStrategyName(" Query_Expansion ")
	if !ok || name != StrategyQueryExpansion {
		t.Fatalf("expected query_expansion, got %s ok=%v", name, ok)
	}

	name, ok = ParseStrategyName("bogus")
	if ok {
		t.Fatalf("expected unknown name")
	}
	if name != StrategySemantic {
		t.Fatalf("expected semantic substitution, got %s", name)
	}
}
