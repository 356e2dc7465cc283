package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dmarkhas/retrieval-engine/internal/config"
	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
	"github.com/dmarkhas/retrieval-engine/internal/core/usecase"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/lexical"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/llm/ollama"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/queue/nats"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/repository/postgres"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/resilience"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/vector/qdrant"
	"github.com/dmarkhas/retrieval-engine/internal/observability/logging"
	"github.com/dmarkhas/retrieval-engine/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Presets config.Presets
	Metrics *metrics.Metrics
	Manager *usecase.Manager

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("retrieval-engine", cfg.LogLevel)
	m := metrics.New("api")
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	source := postgres.NewPassageRepository(db)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init corpus events: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	store := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, ollamaClient, executor)

	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load presets: %w", err)
	}

	deps := usecase.Deps{
		Store:         store,
		Model:         ollamaClient,
		Logger:        logger,
		Monitor:       m,
		SearchTimeout: time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		ModelTimeout:  time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
	}

	manager, err := usecase.NewManager(deps, source, buildLexicalIndex, usecase.ManagerOptions{
		InitialStrategy: cfg.RetrievalStrategy,
		InitialConfig:   cfg.StrategyTunables(),
		DefaultK:        cfg.RetrievalTopK,
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init retriever manager: %w", err)
	}

	if err := queue.SubscribeCorpusUpdated(ctx, manager.InvalidateIndex); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("subscribe corpus events: %w", err)
	}

	return &App{
		Config:  cfg,
		Presets: presets,
		Metrics: m,
		Manager: manager,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildLexicalIndex(passages []domain.Passage) ports.LexicalIndex {
	return lexical.Build(passages)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
