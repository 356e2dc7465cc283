package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
)

type storeFake struct {
	mu      sync.Mutex
	queries []string
	limits  []int
	fn      func(query string, k int) ([]domain.ScoredPassage, error)
}

func (f *storeFake) NearestNeighbors(_ context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, k)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(query, k)
}

func (f *storeFake) seenQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type modelFake struct {
	mu      sync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *modelFake) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.fn == nil {
		return "", nil
	}
	return f.fn(prompt)
}

func (f *modelFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type lexicalFake struct {
	fn func(query string, limit int) []domain.ScoredPassage
}

func (f *lexicalFake) Score(query string, limit int) []domain.ScoredPassage {
	if f.fn == nil {
		return nil
	}
	return f.fn(query, limit)
}

type monitorFake struct {
	mu           sync.Mutex
	anomalies    []string
	degradations []string
	indexBuilds  []int
	switches     []domain.StrategyName
}

func (f *monitorFake) RecordParseAnomaly(_ domain.StrategyName, kind string) {
	f.mu.Lock()
	f.anomalies = append(f.anomalies, kind)
	f.mu.Unlock()
}

func (f *monitorFake) RecordDegradation(_ domain.StrategyName, reason string) {
	f.mu.Lock()
	f.degradations = append(f.degradations, reason)
	f.mu.Unlock()
}

func (f *monitorFake) RecordIndexBuild(passageCount int) {
	f.mu.Lock()
	f.indexBuilds = append(f.indexBuilds, passageCount)
	f.mu.Unlock()
}

func (f *monitorFake) RecordStrategySwitch(name domain.StrategyName) {
	f.mu.Lock()
	f.switches = append(f.switches, name)
	f.mu.Unlock()
}

func (f *monitorFake) degradationReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.degradations...)
}

func testDeps(store ports.PassageStore, model ports.CompletionModel) Deps {
	return Deps{
		Store:   store,
		Model:   model,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Monitor: &monitorFake{},
	}
}

func hit(id string, score float64) domain.ScoredPassage {
	return domain.ScoredPassage{
		Passage: domain.Passage{ID: id, Text: "text " + id},
		Score:   score,
	}
}

func ids(hits []domain.ScoredPassage) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Passage.ID
	}
	return out
}

func sameIDs(got []domain.ScoredPassage, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, h := range got {
		if h.Passage.ID != want[i] {
			return false
		}
	}
	return true
}
