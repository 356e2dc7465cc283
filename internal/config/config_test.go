package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.APIPort)
	}
	if cfg.RetrievalStrategy != "semantic" {
		t.Fatalf("expected semantic default strategy, got %s", cfg.RetrievalStrategy)
	}
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.HybridSemanticWeight != 0.6 {
		t.Fatalf("expected default weight 0.6, got %v", cfg.HybridSemanticWeight)
	}
	if len(cfg.SelfQueryMetadataFields) != 4 {
		t.Fatalf("expected 4 default metadata fields, got %v", cfg.SelfQueryMetadataFields)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_STRATEGY", "hybrid")
	t.Setenv("RETRIEVAL_TOP_K", "10")
	t.Setenv("HYBRID_SEMANTIC_WEIGHT", "0.8")
	t.Setenv("SELF_QUERY_METADATA_FIELDS", "source, year")

	cfg := Load()
	if cfg.RetrievalStrategy != "hybrid" {
		t.Fatalf("expected hybrid, got %s", cfg.RetrievalStrategy)
	}
	if cfg.RetrievalTopK != 10 {
		t.Fatalf("expected top k 10, got %d", cfg.RetrievalTopK)
	}
	if cfg.HybridSemanticWeight != 0.8 {
		t.Fatalf("expected weight 0.8, got %v", cfg.HybridSemanticWeight)
	}
	if len(cfg.SelfQueryMetadataFields) != 2 || cfg.SelfQueryMetadataFields[1] != "year" {
		t.Fatalf("expected [source year], got %v", cfg.SelfQueryMetadataFields)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "not-a-number")
	t.Setenv("HYBRID_SEMANTIC_WEIGHT", "also-not")

	cfg := Load()
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.HybridSemanticWeight != 0.6 {
		t.Fatalf("expected fallback weight 0.6, got %v", cfg.HybridSemanticWeight)
	}
}

func TestStrategyTunablesShape(t *testing.T) {
	cfg := Load()
	tunables := cfg.StrategyTunables()
	for _, key := range []string{
		"semantic_weight", "candidate_multiplier", "expansion_count",
		"rerank_pool_size", "rerank_pool_ceiling", "metadata_fields", "max_hops",
	} {
		if _, ok := tunables[key]; !ok {
			t.Fatalf("missing tunable %s", key)
		}
	}
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := `
fast:
  strategy: semantic
research:
  strategy: multihop
  tunables:
    max_hops: 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write presets: %v", err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(presets))
	}

	research, ok := presets.Lookup("Research")
	if !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	if research.Strategy != "multihop" {
		t.Fatalf("expected multihop, got %s", research.Strategy)
	}
	if research.Tunables["max_hops"] != 4 {
		t.Fatalf("expected max_hops 4, got %v", research.Tunables["max_hops"])
	}
}

func TestLoadPresetsEmptyPath(t *testing.T) {
	presets, err := LoadPresets("")
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}
	if len(presets) != 0 {
		t.Fatalf("expected empty set, got %v", presets)
	}
}

func TestLoadPresetsMissingStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("broken:\n  tunables:\n    k: 1\n"), 0o600); err != nil {
		t.Fatalf("write presets: %v", err)
	}
	if _, err := LoadPresets(path); err == nil {
		t.Fatalf("expected error for preset without strategy")
	}
}
