package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the book content service.
// Metrics are organized by subsystem: aggregations, cache, searches, sources,
// events and prewarm runs. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// AggregationsStarted counts GetBookContent calls.
	AggregationsStarted prometheus.Counter

	// AggregationsCompleted counts finished aggregations, labeled by the
	// provenance of the returned content.
	AggregationsCompleted *prometheus.CounterVec

	// AggregationDuration observes aggregation duration in seconds.
	AggregationDuration prometheus.Histogram

	// FullTextResolved counts aggregations that produced full text.
	FullTextResolved prometheus.Counter

	// FallbacksSynthesized counts aggregations that ended in a generated fallback.
	FallbacksSynthesized prometheus.Counter

	// CacheHits counts cache hits, labeled by key namespace.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by key namespace.
	CacheMisses *prometheus.CounterVec

	// SearchesStarted counts searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by source and error type.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// CandidatesPerSearch observes candidates returned per search, labeled by source.
	CandidatesPerSearch *prometheus.HistogramVec

	// SourceFetches counts FetchContent calls, labeled by source and outcome
	// (full_text, partial, error).
	SourceFetches *prometheus.CounterVec

	// SourceErrors counts source failures, labeled by source, operation and error type.
	SourceErrors *prometheus.CounterVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// EventsPublished counts published events, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// PrewarmBooks counts books processed by prewarm runs, labeled by outcome.
	PrewarmBooks *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogramVec := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	return &Metrics{
		AggregationsStarted:   counter("aggregations_started_total", "Book content aggregations started"),
		AggregationsCompleted: counterVec("aggregations_completed_total", "Book content aggregations completed by content source", "source"),
		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Book content aggregation latency",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 45},
		}),
		FullTextResolved:     counter("full_text_resolved_total", "Aggregations that found full text"),
		FallbacksSynthesized: counter("fallbacks_synthesized_total", "Aggregations answered with generated content"),

		CacheHits:   counterVec("cache_hits_total", "Cache hits by key namespace", "namespace"),
		CacheMisses: counterVec("cache_misses_total", "Cache misses by key namespace", "namespace"),

		SearchesStarted:   counterVec("searches_started_total", "Catalog searches started", "source"),
		SearchesCompleted: counterVec("searches_completed_total", "Catalog searches that returned results", "source"),
		SearchesFailed:    counterVec("searches_failed_total", "Catalog searches that failed", "source", "error_type"),
		SearchDuration: histogramVec("search_duration_seconds", "Catalog search latency",
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30}, "source"),
		CandidatesPerSearch: histogramVec("candidates_per_search", "Candidates returned per catalog search",
			[]float64{0, 1, 2, 5, 10, 20, 50}, "source"),

		SourceFetches:     counterVec("source_fetches_total", "Content fetches by outcome", "source", "outcome"),
		SourceErrors:      counterVec("source_errors_total", "Source failures by operation and error type", "source", "operation", "error_type"),
		SourceRateLimited: counterVec("source_rate_limited_total", "Throttled source responses", "source"),

		EventsPublished: counterVec("events_published_total", "Events published", "event_type"),
		EventsFailed:    counterVec("events_failed_total", "Events that could not be published", "event_type"),

		PrewarmBooks: counterVec("prewarm_books_total", "Reading-list books prewarmed by outcome", "outcome"),
	}
}

// RecordAggregationStarted records that an aggregation has started.
func (m *Metrics) RecordAggregationStarted() {
	if m == nil {
		return
	}
	m.AggregationsStarted.Inc()
}

// RecordAggregationCompleted records the outcome of an aggregation.
func (m *Metrics) RecordAggregationCompleted(source string, fullText bool, durationSeconds float64) {
	if m == nil {
		return
	}
	m.AggregationsCompleted.WithLabelValues(source).Inc()
	m.AggregationDuration.Observe(durationSeconds)
	if fullText {
		m.FullTextResolved.Inc()
	}
}

// RecordFallbackSynthesized records that generated content was returned.
func (m *Metrics) RecordFallbackSynthesized() {
	if m == nil {
		return
	}
	m.FallbacksSynthesized.Inc()
}

// RecordCacheHit records a cache hit in the given key namespace.
func (m *Metrics) RecordCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss records a cache miss in the given key namespace.
func (m *Metrics) RecordCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(namespace).Inc()
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	if m == nil {
		return
	}
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(source string, candidateCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.CandidatesPerSearch.WithLabelValues(source).Observe(float64(candidateCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(source, errorType string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.WithLabelValues(source, errorType).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.recordRateLimited(source, errorType)
}

// RecordSourceFetch records a content fetch outcome.
func (m *Metrics) RecordSourceFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
}

// RecordSourceError records a failed source operation.
func (m *Metrics) RecordSourceError(source, operation, errorType string) {
	if m == nil {
		return
	}
	m.SourceErrors.WithLabelValues(source, operation, errorType).Inc()
	m.recordRateLimited(source, errorType)
}

func (m *Metrics) recordRateLimited(source, errorType string) {
	if errorType == "rate_limited" {
		m.SourceRateLimited.WithLabelValues(source).Inc()
	}
}

// RecordEventPublished records a published event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records an event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// RecordPrewarmBook records one prewarmed book by outcome
// (full_text, partial, generated, failed).
func (m *Metrics) RecordPrewarmBook(outcome string) {
	if m == nil {
		return
	}
	m.PrewarmBooks.WithLabelValues(outcome).Inc()
}
