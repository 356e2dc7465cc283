package ports

import (
	"context"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// PassageStore performs nearest-neighbor lookups over the indexed corpus.
type PassageStore interface {
	NearestNeighbors(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error)
}

// CompletionModel produces free-text completions. Callers own all parsing
// of its output and must treat it as untrusted.
type CompletionModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder builds a vector for query text. Consumed by the passage store
// adapter; embedding computation itself is external.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PassageSource reads the full passage corpus maintained by the ingestion
// pipeline. Used only to build the lexical index.
type PassageSource interface {
	ListPassages(ctx context.Context) ([]domain.Passage, error)
}

// LexicalIndex scores the corpus against query keywords. Built once per
// corpus version and owned by the retriever manager.
type LexicalIndex interface {
	Score(query string, limit int) []domain.ScoredPassage
}

// CorpusEvents delivers corpus-change notifications from the ingestion
// pipeline.
type CorpusEvents interface {
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context) error) error
}
