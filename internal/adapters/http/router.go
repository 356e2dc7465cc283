package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmarkhas/retrieval-engine/internal/config"
	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
	"github.com/dmarkhas/retrieval-engine/internal/core/ports"
	"github.com/dmarkhas/retrieval-engine/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	retriever ports.RetrievalService
	presets   config.Presets
	metrics   *metrics.Metrics
}

func NewRouter(retriever ports.RetrievalService, presets config.Presets, m *metrics.Metrics) *Router {
	return &Router{
		retriever: retriever,
		presets:   presets,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/strategy", rt.switchStrategy)
	mux.HandleFunc("/v1/strategies", rt.listStrategies)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(serviceName, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if req.K < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "k must be positive"})
		return
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(r.Context(), req)
	if err != nil {
		rt.recordRetrieval(req.Strategy, "error", 0, time.Since(start))
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	status := "ok"
	if result.Degraded {
		status = "degraded"
	}
	rt.recordRetrieval(result.Strategy, status, len(result.Passages), time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) switchStrategy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Name   string         `json:"name"`
		Preset string         `json:"preset"`
		Config map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	name, cfg := req.Name, req.Config
	if req.Preset != "" {
		preset, ok := rt.presets.Lookup(req.Preset)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown preset: " + req.Preset})
			return
		}
		name = preset.Strategy
		cfg = mergeConfig(preset.Tunables, req.Config)
	}
	if strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name or preset is required"})
		return
	}

	info, err := rt.retriever.SwitchStrategy(name, cfg)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (rt *Router) listStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"strategies": rt.retriever.ListStrategies(),
	})
}

// mergeConfig overlays per-request config on top of a preset's tunables.
func mergeConfig(base, overlay map[string]any) map[string]any {
	if len(base) == 0 {
		return overlay
	}
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func (rt *Router) recordRetrieval(strategy, status string, passages int, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	if strategy == "" {
		strategy = "active"
	}
	rt.metrics.RecordRetrieval(serviceName, strategy, status, passages, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
