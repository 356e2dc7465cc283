package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
	"github.com/dmarkhas/retrieval-engine/internal/infrastructure/resilience"
)

// Client adapts a qdrant collection to the PassageStore port. The query
// text is embedded through the external embedding service and searched by
// vector; payloads map back to passages with their corpus metadata.
type Client struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) NearestNeighbors(ctx context.Context, query string, k int) ([]domain.ScoredPassage, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, reqBody, &searchResp, "search")
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScoredPassage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredPassage{
			Passage: passageFromPayload(r.ID, r.Payload),
			Score:   r.Score,
			Source:  "semantic",
		})
	}
	return out, nil
}

// passageFromPayload rebuilds the passage the ingestion pipeline stored.
// The payload carries "passage_id" and "text"; everything else is corpus
// metadata and passes through untouched.
func passageFromPayload(pointID any, payload map[string]any) domain.Passage {
	p := domain.Passage{
		ID:   getStringPayload(payload, "passage_id"),
		Text: getStringPayload(payload, "text"),
	}
	if p.ID == "" && pointID != nil {
		p.ID = fmt.Sprintf("%v", pointID)
	}

	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == "passage_id" || key == "text" {
			continue
		}
		metadata[key] = value
	}
	if len(metadata) > 0 {
		p.Metadata = metadata
	}
	return p
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
