package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
)

type sourceFake struct {
	calls atomic.Int32
	fn    func() ([]domain.Passage, error)
}

func (f *sourceFake) ListPassages(context.Context) ([]domain.Passage, error) {
	f.calls.Add(1)
	if f.fn == nil {
		return nil, nil
	}
	return f.fn()
}

func passthroughBuilder(passages []domain.Passage) ports.LexicalIndex {
	return &lexicalFake{fn: func(string, int) []domain.ScoredPassage {
		out := make([]domain.ScoredPassage, len(passages))
		for i, p := range passages {
			out[i] = domain.ScoredPassage{Passage: p, Score: 1}
		}
		return out
	}}
}

func newTestManager(t *testing.T, deps Deps, opts ManagerOptions) (*Manager, *sourceFake) {
	t.Helper()
	source := &sourceFake{}
	m, err := NewManager(deps, source, passthroughBuilder, opts)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, source
}

func TestManagerRetrieveDefaultK(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	m, _ := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{})

	result, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Strategy != "semantic" {
		t.Fatalf("expected semantic default, got %s", result.Strategy)
	}
	if store.limits[0] != 5 {
		t.Fatalf("expected default k=5, got %d", store.limits[0])
	}
}

func TestManagerFallbackToSemanticAnnotatesDegraded(t *testing.T) {
	// The store fails the oversized self_query pool lookup but serves the
	// plain semantic retry.
	store := &storeFake{fn: func(_ string, k int) ([]domain.ScoredPassage, error) {
		if k > 5 {
			return nil, errors.New("pool lookup failed")
		}
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	m, _ := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{InitialStrategy: "self_query"})

	result, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 3})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded result")
	}
	if result.Strategy != "semantic" {
		t.Fatalf("expected semantic fallback, got %s", result.Strategy)
	}
	if result.DegradedReason == "" {
		t.Fatalf("expected degraded reason")
	}
	if !sameIDs(result.Passages, "p1") {
		t.Fatalf("expected fallback passages, got %v", ids(result.Passages))
	}
}

func TestManagerSemanticFailurePropagates(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return nil, errors.New("store down")
	}}
	m, _ := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{})

	_, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 3})
	if !domain.IsKind(err, domain.ErrAdapterUnavailable) {
		t.Fatalf("expected adapter unavailable, got %v", err)
	}
}

func TestManagerSwitchStrategy(t *testing.T) {
	deps := testDeps(&storeFake{}, &modelFake{})
	monitor := deps.Monitor.(*monitorFake)
	m, _ := newTestManager(t, deps, ManagerOptions{})

	info, err := m.SwitchStrategy("multihop", map[string]any{"max_hops": 2})
	if err != nil {
		t.Fatalf("SwitchStrategy() error = %v", err)
	}
	if info.Name != domain.StrategyMultiHop {
		t.Fatalf("expected multihop, got %s", info.Name)
	}
	if m.ActiveStrategy().Name != domain.StrategyMultiHop {
		t.Fatalf("active strategy not switched")
	}
	monitor.mu.Lock()
	switches := len(monitor.switches)
	monitor.mu.Unlock()
	if switches != 1 {
		t.Fatalf("expected one switch event, got %d", switches)
	}
}

func TestManagerSwitchInvalidConfigKeepsActive(t *testing.T) {
	m, _ := newTestManager(t, testDeps(&storeFake{}, &modelFake{}), ManagerOptions{})

	_, err := m.SwitchStrategy("multihop", map[string]any{"max_hops": "many"})
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if m.ActiveStrategy().Name != domain.StrategySemantic {
		t.Fatalf("active strategy changed on failed switch")
	}
}

func TestManagerPerRequestOverrideDoesNotTouchActive(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	model := &modelFake{fn: func(string) (string, error) {
		return "5", nil
	}}
	m, _ := newTestManager(t, testDeps(store, model), ManagerOptions{})

	result, err := m.Retrieve(context.Background(), domain.RetrievalRequest{
		Query: "q", K: 1, Strategy: "reranking",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Strategy != "reranking" {
		t.Fatalf("expected reranking override, got %s", result.Strategy)
	}
	if m.ActiveStrategy().Name != domain.StrategySemantic {
		t.Fatalf("override mutated active strategy")
	}
}

func TestManagerConcurrentRetrievesDuringSwitch(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	model := &modelFake{fn: func(string) (string, error) {
		return "7", nil
	}}
	m, _ := newTestManager(t, testDeps(store, model), ManagerOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 1})
			if err != nil {
				t.Errorf("Retrieve() error = %v", err)
				return
			}
			// Every request resolves to exactly one strategy snapshot.
			if result.Strategy != "semantic" && result.Strategy != "reranking" {
				t.Errorf("unexpected strategy %s", result.Strategy)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "reranking"
			if i%2 == 0 {
				name = "semantic"
			}
			if _, err := m.SwitchStrategy(name, nil); err != nil {
				t.Errorf("SwitchStrategy() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestManagerLexicalIndexBuiltOnce(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	m, source := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{InitialStrategy: "hybrid"})
	source.fn = func() ([]domain.Passage, error) {
		return []domain.Passage{{ID: "p1", Text: "text"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 2}); err != nil {
				t.Errorf("Retrieve() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one corpus read, got %d", got)
	}
}

func TestManagerFailedIndexBuildRetries(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	m, source := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{InitialStrategy: "hybrid"})

	fail := true
	source.fn = func() ([]domain.Passage, error) {
		if fail {
			return nil, errors.New("corpus read failed")
		}
		return []domain.Passage{{ID: "p1", Text: "text"}}, nil
	}

	// First build fails; the hybrid strategy degrades to semantic results.
	if _, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 2}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	fail = false
	if _, err := m.Retrieve(context.Background(), domain.RetrievalRequest{Query: "q", K: 2}); err != nil {
		t.Fatalf("Retrieve() after recovery error = %v", err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected a rebuild after failure, got %d corpus reads", got)
	}
}

func TestManagerInvalidateIndexForcesRebuild(t *testing.T) {
	store := &storeFake{fn: func(string, int) ([]domain.ScoredPassage, error) {
		return []domain.ScoredPassage{hit("p1", 0.9)}, nil
	}}
	m, source := newTestManager(t, testDeps(store, &modelFake{}), ManagerOptions{InitialStrategy: "hybrid"})
	source.fn = func() ([]domain.Passage, error) {
		return []domain.Passage{{ID: "p1", Text: "text"}}, nil
	}

	ctx := context.Background()
	if _, err := m.Retrieve(ctx, domain.RetrievalRequest{Query: "q", K: 2}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if err := m.InvalidateIndex(ctx); err != nil {
		t.Fatalf("InvalidateIndex() error = %v", err)
	}
	if _, err := m.Retrieve(ctx, domain.RetrievalRequest{Query: "q", K: 2}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected rebuild after invalidation, got %d corpus reads", got)
	}
}
