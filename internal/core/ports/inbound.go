package ports

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// RetrievalService is the inbound contract for passage retrieval and
// strategy lifecycle management.
type RetrievalService interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error)
	SwitchStrategy(name string, config map[string]any) (domain.StrategyInfo, error)
	ListStrategies() []domain.StrategyInfo
}
