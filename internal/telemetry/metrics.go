// Package telemetry provides Prometheus metrics for the RAG core.
// Collectors are registered on the Registerer passed to NewMetrics, so
// isolated stores (e.g. in tests) never share global state.
// A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sercha_rag"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Skip reasons for chunks excluded from a search.
const (
	SkipCorrupt   = "corrupt"
	SkipDimension = "dimension"
	SkipStale     = "stale"
)

// Metrics holds every collector of the RAG core.
type Metrics struct {
	// IndexOperations counts mutations by operation and result.
	// Labels: op (index, update, delete, reembed, optimize), result (success, error)
	IndexOperations *prometheus.CounterVec

	// IndexDuration tracks how long mutations take.
	IndexDuration *prometheus.HistogramVec

	// SearchDuration tracks similarity search latency.
	SearchDuration prometheus.Histogram

	// SearchResults tracks how many chunks a search returns.
	SearchResults prometheus.Histogram

	// SkippedChunks counts chunks excluded from comparison.
	// Labels: reason (corrupt, dimension, stale)
	SkippedChunks *prometheus.CounterVec

	// EmbeddingCache counts cache lookups by outcome.
	// Labels: result (hit, miss)
	EmbeddingCache *prometheus.CounterVec

	// EmbeddingCalls counts oracle batch calls by result.
	EmbeddingCalls *prometheus.CounterVec

	// EmbeddingDuration tracks oracle batch call latency.
	EmbeddingDuration prometheus.Histogram

	// Documents is the number of indexed documents.
	Documents prometheus.Gauge

	// Chunks is the number of stored chunks.
	Chunks prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IndexOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of document mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		IndexDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Duration of document mutations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		SearchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Duration of similarity searches in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of chunks returned per search",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		SkippedChunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "skipped_chunks_total",
				Help:      "Chunks excluded from comparison by reason",
			},
			[]string{"reason"},
		),
		EmbeddingCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "cache_lookups_total",
				Help:      "Embedding cache lookups by result",
			},
			[]string{"result"},
		),
		EmbeddingCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "oracle_calls_total",
				Help:      "Embedding oracle batch calls by result",
			},
			[]string{"result"},
		),
		EmbeddingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "oracle_duration_seconds",
				Help:      "Duration of embedding oracle batch calls in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		Documents: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "documents",
				Help:      "Number of indexed documents",
			},
		),
		Chunks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "chunks",
				Help:      "Number of stored chunks",
			},
		),
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveOperation records one mutation.
func (m *Metrics) ObserveOperation(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.IndexOperations.WithLabelValues(op, result(err)).Inc()
	m.IndexDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveSearch records one similarity search.
func (m *Metrics) ObserveSearch(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResults.Observe(float64(results))
}

// SkipChunk records a chunk excluded from comparison.
func (m *Metrics) SkipChunk(reason string) {
	if m == nil {
		return
	}
	m.SkippedChunks.WithLabelValues(reason).Inc()
}

// CacheLookup records an embedding cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.EmbeddingCache.WithLabelValues("hit").Inc()
		return
	}
	m.EmbeddingCache.WithLabelValues("miss").Inc()
}

// ObserveOracle records one oracle batch call.
func (m *Metrics) ObserveOracle(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.EmbeddingCalls.WithLabelValues(result(err)).Inc()
	m.EmbeddingDuration.Observe(d.Seconds())
}

// SetSize records the current document and chunk counts.
func (m *Metrics) SetSize(documents, chunks int) {
	if m == nil {
		return
	}
	m.Documents.Set(float64(documents))
	m.Chunks.Set(float64(chunks))
}
