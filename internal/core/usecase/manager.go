package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
)

const defaultTopK = 5

// IndexBuilder turns the full passage corpus into a lexical index.
type IndexBuilder func(passages []domain.Passage) ports.LexicalIndex

// Manager owns the active strategy instance and the lexical index
// lifecycle. Strategy instances are immutable and swapped by atomic
// pointer replacement, so in-flight retrievals always observe a
// consistent snapshot.
type Manager struct {
	deps     Deps
	factory  *Factory
	source   ports.PassageSource
	buildFn  IndexBuilder
	defaultK int

	active atomic.Pointer[activeStrategy]

	lexMu    sync.Mutex
	lexBuild *indexBuild
}

type activeStrategy struct {
	name     domain.StrategyName
	strategy Strategy
}

// indexBuild is the build-once state shared by concurrent callers: the
// first caller starts the build, everyone else waits on done.
type indexBuild struct {
	done  chan struct{}
	index ports.LexicalIndex
	err   error
}

type ManagerOptions struct {
	InitialStrategy string
	InitialConfig   map[string]any
	DefaultK        int
}

func NewManager(deps Deps, source ports.PassageSource, buildFn IndexBuilder, opts ManagerOptions) (*Manager, error) {
	m := &Manager{
		deps:     deps.normalize(),
		source:   source,
		buildFn:  buildFn,
		defaultK: opts.DefaultK,
	}
	if m.defaultK <= 0 {
		m.defaultK = defaultTopK
	}

	m.deps.Lexical = m.lexicalIndex
	m.factory = NewFactory(m.deps)

	strategy, name, err := m.factory.Create(opts.InitialStrategy, opts.InitialConfig)
	if err != nil {
		return nil, err
	}
	m.active.Store(&activeStrategy{name: name, strategy: strategy})
	return m, nil
}

// Retrieve delegates to the strategy snapshot taken at call start. A
// per-request strategy override builds a one-shot instance without
// touching the active one. On strategy failure the manager falls back
// once to semantic retrieval and annotates the result as degraded.
func (m *Manager) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error) {
	if req.K <= 0 {
		req.K = m.defaultK
	}

	name, strategy, err := m.resolveStrategy(req)
	if err != nil {
		return nil, err
	}

	hits, err := strategy.Retrieve(ctx, req.Query, req.K)
	if err == nil {
		return &domain.RetrievalResult{Passages: hits, Strategy: string(name)}, nil
	}
	if name == domain.StrategySemantic {
		return nil, err
	}

	m.deps.Logger.Warn("strategy_fallback", "strategy", string(name), "error", err)
	m.deps.Monitor.RecordDegradation(name, "fallback_to_semantic")

	fallback := NewSemanticStrategy(m.deps)
	hits, ferr := fallback.Retrieve(ctx, req.Query, req.K)
	if ferr != nil {
		return nil, ferr
	}
	return &domain.RetrievalResult{
		Passages:       hits,
		Strategy:       string(domain.StrategySemantic),
		Degraded:       true,
		DegradedReason: err.Error(),
	}, nil
}

func (m *Manager) resolveStrategy(req domain.RetrievalRequest) (domain.StrategyName, Strategy, error) {
	if req.Strategy == "" && len(req.Config) == 0 {
		snapshot := m.active.Load()
		return snapshot.name, snapshot.strategy, nil
	}

	raw := req.Strategy
	if raw == "" {
		raw = string(m.active.Load().name)
	}
	strategy, name, err := m.factory.Create(raw, req.Config)
	if err != nil {
		return name, nil, err
	}
	return name, strategy, nil
}

// SwitchStrategy atomically replaces the active strategy. In-flight
// retrievals complete against the instance they captured.
func (m *Manager) SwitchStrategy(name string, config map[string]any) (domain.StrategyInfo, error) {
	strategy, resolved, err := m.factory.Create(name, config)
	if err != nil {
		return domain.StrategyInfo{}, err
	}

	m.active.Store(&activeStrategy{name: resolved, strategy: strategy})
	m.deps.Monitor.RecordStrategySwitch(resolved)
	m.deps.Logger.Info("strategy_switched", "strategy", string(resolved))
	return strategy.Describe(), nil
}

func (m *Manager) ListStrategies() []domain.StrategyInfo {
	return m.factory.ListStrategies()
}

// ActiveStrategy reports the currently active strategy's metadata.
func (m *Manager) ActiveStrategy() domain.StrategyInfo {
	return m.active.Load().strategy.Describe()
}

// InvalidateIndex discards the lexical index so the next hybrid retrieval
// rebuilds it against the current corpus. Wired to corpus-updated events.
func (m *Manager) InvalidateIndex(context.Context) error {
	m.lexMu.Lock()
	m.lexBuild = nil
	m.lexMu.Unlock()
	m.deps.Logger.Info("lexical_index_invalidated")
	return nil
}

// lexicalIndex returns the corpus lexical index, building it at most once
// per corpus version. Concurrent callers share the in-flight build; a
// failed build is cleared so a later call can retry.
func (m *Manager) lexicalIndex(ctx context.Context) (ports.LexicalIndex, error) {
	m.lexMu.Lock()
	build := m.lexBuild
	if build == nil {
		build = &indexBuild{done: make(chan struct{})}
		m.lexBuild = build
		go m.buildIndex(context.WithoutCancel(ctx), build)
	}
	m.lexMu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-build.done:
	}

	if build.err != nil {
		m.lexMu.Lock()
		if m.lexBuild == build {
			m.lexBuild = nil
		}
		m.lexMu.Unlock()
		return nil, build.err
	}
	return build.index, nil
}

func (m *Manager) buildIndex(ctx context.Context, build *indexBuild) {
	defer close(build.done)

	passages, err := m.source.ListPassages(ctx)
	if err != nil {
		build.err = domain.NewStrategyError("passage_source.list", classifyKind(err), err)
		return
	}

	build.index = m.buildFn(passages)
	m.deps.Monitor.RecordIndexBuild(len(passages))
	m.deps.Logger.Info("lexical_index_built", "passages", len(passages))
}

func classifyKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrAdapterTimeout
	}
	return domain.ErrAdapterUnavailable
}
