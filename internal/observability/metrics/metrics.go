package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// Metrics holds the engine's prometheus registry: HTTP server metrics
// plus retrieval-level counters. It implements the usecase Monitor
// contract for strategy anomalies.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal    *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	retrievedPassages *prometheus.HistogramVec
	degradedTotal     *prometheus.CounterVec
	parseAnomalies    *prometheus.CounterVec
	indexBuildsTotal  prometheus.Counter
	indexedPassages   prometheus.Gauge
	switchesTotal     *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retrieval",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total retrieval requests by strategy and outcome.",
		},
		[]string{"service", "strategy", "status"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "engine",
			Name:      "duration_seconds",
			Help:      "Retrieval execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "engine",
			Name:      "result_passages",
			Help:      "Distribution of passages per retrieval result.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "strategy"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "engine",
			Name:      "degraded_total",
			Help:      "Total non-fatal strategy degradations by reason.",
		},
		[]string{"service", "strategy", "reason"},
	)
	parseAnomalies := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "model",
			Name:      "parse_anomalies_total",
			Help:      "Total model responses that failed structured parsing.",
		},
		[]string{"service", "strategy", "kind"},
	)
	indexBuildsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "lexical",
			Name:      "index_builds_total",
			Help:      "Total lexical index builds.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedPassages := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retrieval",
			Subsystem: "lexical",
			Name:      "indexed_passages",
			Help:      "Passage count of the latest lexical index build.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	switchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "engine",
			Name:      "strategy_switches_total",
			Help:      "Total strategy switches by target strategy.",
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalDuration,
		retrievedPassages,
		degradedTotal,
		parseAnomalies,
		indexBuildsTotal,
		indexedPassages,
		switchesTotal,
	)

	return &Metrics{
		service:           service,
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		retrievalTotal:    retrievalTotal,
		retrievalDuration: retrievalDuration,
		retrievedPassages: retrievedPassages,
		degradedTotal:     degradedTotal,
		parseAnomalies:    parseAnomalies,
		indexBuildsTotal:  indexBuildsTotal,
		indexedPassages:   indexedPassages,
		switchesTotal:     switchesTotal,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordRetrieval observes one completed retrieval request.
func (m *Metrics) RecordRetrieval(service, strategy, status string, passages int, duration time.Duration) {
	m.retrievalTotal.WithLabelValues(service, strategy, status).Inc()
	m.retrievalDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	m.retrievedPassages.WithLabelValues(service, strategy).Observe(float64(passages))
}

func (m *Metrics) RecordParseAnomaly(strategy domain.StrategyName, kind string) {
	m.parseAnomalies.WithLabelValues(m.service, string(strategy), kind).Inc()
}

func (m *Metrics) RecordDegradation(strategy domain.StrategyName, reason string) {
	m.degradedTotal.WithLabelValues(m.service, string(strategy), reason).Inc()
}

func (m *Metrics) RecordIndexBuild(passageCount int) {
	m.indexBuildsTotal.Inc()
	m.indexedPassages.Set(float64(passageCount))
}

func (m *Metrics) RecordStrategySwitch(name domain.StrategyName) {
	m.switchesTotal.WithLabelValues(m.service, string(name)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
