package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
)

// Strategy is the uniform retrieval contract. Retrieve returns at most k
// passages, unique by id, in descending score order; failures surface as
// *domain.StrategyError. Strategies are immutable after construction.
type Strategy interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error)
	Describe() domain.StrategyInfo
}

// LexicalProvider hands out the corpus lexical index, building it on
// first use. Owned by the Manager.
type LexicalProvider func(ctx context.Context) (ports.LexicalIndex, error)

// Monitor receives non-fatal strategy anomalies and lifecycle events.
type Monitor interface {
	RecordParseAnomaly(strategy domain.StrategyName, kind string)
	RecordDegradation(strategy domain.StrategyName, reason string)
	RecordIndexBuild(passageCount int)
	RecordStrategySwitch(name domain.StrategyName)
}

type noopMonitor struct{}

func (noopMonitor) RecordParseAnomaly(domain.StrategyName, string) {}
func (noopMonitor) RecordDegradation(domain.StrategyName, string)  {}
func (noopMonitor) RecordIndexBuild(int)                           {}
func (noopMonitor) RecordStrategySwitch(domain.StrategyName)       {}

// Deps bundles the external collaborators shared by all strategies.
type Deps struct {
	Store   ports.PassageStore
	Model   ports.CompletionModel
	Lexical LexicalProvider
	Logger  *slog.Logger
	Monitor Monitor

	// Per external call deadlines. Zero values fall back to defaults.
	SearchTimeout time.Duration
	ModelTimeout  time.Duration
}

const (
	defaultSearchTimeout = 10 * time.Second
	defaultModelTimeout  = 30 * time.Second
)

func (d Deps) normalize() Deps {
	out := d
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Monitor == nil {
		out.Monitor = noopMonitor{}
	}
	if out.SearchTimeout <= 0 {
		out.SearchTimeout = defaultSearchTimeout
	}
	if out.ModelTimeout <= 0 {
		out.ModelTimeout = defaultModelTimeout
	}
	return out
}

// nearest runs one nearest-neighbor lookup under the search deadline and
// classifies failures into the strategy error taxonomy.
func (d Deps) nearest(ctx context.Context, query string, k int) ([]domain.ScoredPassage, *domain.StrategyError) {
	callCtx, cancel := context.WithTimeout(ctx, d.SearchTimeout)
	defer cancel()

	hits, err := d.Store.NearestNeighbors(callCtx, query, k)
	if err != nil {
		return nil, classifyAdapterError("passage_store.nearest_neighbors", err)
	}
	return hits, nil
}

// complete runs one model completion under the model deadline.
func (d Deps) complete(ctx context.Context, op, prompt string) (string, *domain.StrategyError) {
	callCtx, cancel := context.WithTimeout(ctx, d.ModelTimeout)
	defer cancel()

	text, err := d.Model.Complete(callCtx, prompt)
	if err != nil {
		return "", classifyAdapterError(op, err)
	}
	return text, nil
}

func classifyAdapterError(op string, err error) *domain.StrategyError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewStrategyError(op, domain.ErrAdapterTimeout, err)
	}
	return domain.NewStrategyError(op, domain.ErrAdapterUnavailable, err)
}

// concurrentNearest fans the queries out and collects the result lists in
// query order, so the later merge is independent of completion order.
// Failed sub-queries leave a nil slot; allFailed reports total exhaustion.
func (d Deps) concurrentNearest(ctx context.Context, queries []string, k int) (lists [][]domain.ScoredPassage, allFailed bool, firstErr *domain.StrategyError) {
	lists = make([][]domain.ScoredPassage, len(queries))
	errs := make([]*domain.StrategyError, len(queries))

	done := make(chan int, len(queries))
	for i, q := range queries {
		go func(slot int, query string) {
			hits, err := d.nearest(ctx, query, k)
			if err != nil {
				errs[slot] = err
			} else {
				lists[slot] = hits
			}
			done <- slot
		}(i, q)
	}
	for range queries {
		<-done
	}

	allFailed = true
	for i := range queries {
		if errs[i] == nil {
			allFailed = false
			continue
		}
		if firstErr == nil {
			firstErr = errs[i]
		}
		d.Logger.Warn("sub_query_failed", "slot", i, "error", errs[i])
	}
	return lists, allFailed, firstErr
}

// stampSource marks each hit with the strategy that produced the final
// ranking.
func stampSource(hits []domain.ScoredPassage, name domain.StrategyName) []domain.ScoredPassage {
	for i := range hits {
		hits[i].Source = string(name)
	}
	return hits
}
