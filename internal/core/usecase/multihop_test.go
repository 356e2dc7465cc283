package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

func TestMultiHopCrossReferencedPassagesRankFirst(t *testing.T) {
	store := &storeFake{fn: func(query string, _ int) ([]domain.ScoredPassage, error) {
		switch query {
		case "who founded the lab and when":
			return []domain.ScoredPassage{hit("founding", 0.6)}, nil
		case "who founded the lab":
			return []domain.ScoredPassage{hit("founder", 0.9), hit("founding", 0.5)}, nil
		case "when was the lab founded":
			return []domain.ScoredPassage{hit("timeline", 0.8), hit("founding", 0.4)}, nil
		}
		return nil, nil
	}}
	model := &modelFake{fn: func(string) (string, error) {
		return "1. who founded the lab\n2. when was the lab founded", nil
	}}
	s := NewMultiHopStrategy(testDeps(store, model), 2)

	got, err := s.Retrieve(context.Background(), "who founded the lab and when", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// "founding" appears in all three hops and outranks every single-hop
	// passage.
	if got[0].Passage.ID != "founding" {
		t.Fatalf("expected cross-referenced passage first, got %v", ids(got))
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(got))
	}
	if got[0].Source != "multihop" {
		t.Fatalf("expected multihop source, got %q", got[0].Source)
	}
}

func TestMultiHopDecompositionFailureFallsBackToBaseQuery(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	model := &modelFake{fn: func(string) (string, error) {
		return "", errors.New("model down")
	}}
	deps := testDeps(store, model)
	monitor := deps.Monitor.(*monitorFake)
	s := NewMultiHopStrategy(deps, 3)

	got, err := s.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !sameIDs(got, "p1") {
		t.Fatalf("expected base result, got %v", ids(got))
	}
	if len(store.seenQueries()) != 1 {
		t.Fatalf("expected only the original query, got %v", store.seenQueries())
	}
	reasons := monitor.degradationReasons()
	if len(reasons) != 1 || reasons[0] != "decomposition_failed" {
		t.Fatalf("expected decomposition_failed degradation, got %v", reasons)
	}
}

func TestMultiHopHopCountCapped(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return nil, nil
	}}
	model := &modelFake{fn: func(string) (string, error) {
		return "one\ntwo\nthree\nfour\nfive", nil
	}}
	s := NewMultiHopStrategy(testDeps(store, model), 2)

	if _, err := s.Retrieve(context.Background(), "q", 3); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// Original plus at most maxHops sub-questions.
	if len(store.seenQueries()) != 3 {
		t.Fatalf("expected 3 queries, got %v", store.seenQueries())
	}
}
