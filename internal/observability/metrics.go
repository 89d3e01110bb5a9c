package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper discovery service.
// Metrics are organized by subsystem: aggregated searches, papers, enrichment,
// cache, and upstream sources. All counters and histograms are registered via
// promauto with the default Prometheus registry.
//
// Record* methods are safe to call on a nil *Metrics so components can run
// without instrumentation in tests and in the CLI.
type Metrics struct {
	// SearchesTotal counts aggregated searches handled by the orchestrator.
	SearchesTotal prometheus.Counter

	// SearchesDegraded counts searches that recovered from an unexpected failure
	// and returned an empty result.
	SearchesDegraded prometheus.Counter

	// SearchDuration observes the end-to-end duration of aggregated searches in seconds.
	SearchDuration prometheus.Histogram

	// PapersReturned observes the number of papers returned per search.
	PapersReturned prometheus.Histogram

	// PapersBySource counts papers contributed, labeled by paper source.
	PapersBySource *prometheus.CounterVec

	// PapersDuplicate counts papers dropped by deduplication.
	PapersDuplicate prometheus.Counter

	// PapersFiltered counts papers excluded by the filter chain.
	PapersFiltered prometheus.Counter

	// EnrichmentsTotal counts citation enrichment attempts, labeled by outcome
	// (enriched, missing, failed).
	EnrichmentsTotal *prometheus.CounterVec

	// CacheLookups counts cache lookups, labeled by namespace and result (hit, miss).
	CacheLookups *prometheus.CounterVec

	// CacheErrors counts cache backend failures, labeled by namespace and operation.
	CacheErrors *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRetries counts retried HTTP attempts, labeled by source.
	SourceRetries *prometheus.CounterVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// EventsPublished counts pipeline events published, labeled by event type and result.
	EventsPublished *prometheus.CounterVec

	// SearchesRecorded counts search history writes by result
	// (recorded, duplicate, rejected, error).
	SearchesRecorded *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of aggregated searches",
		}),
		SearchesDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_degraded_total",
			Help:      "Total number of searches that recovered from a failure with an empty result",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of aggregated searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PapersReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_returned",
			Help:      "Number of papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
		}),

		// Papers
		PapersBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_by_source_total",
			Help:      "Total number of papers contributed by source",
		}, []string{"source"}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped",
		}),
		PapersFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_filtered_total",
			Help:      "Total number of papers excluded by filters",
		}),

		// Enrichment
		EnrichmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Total number of citation enrichment attempts by outcome",
		}, []string{"outcome"}),

		// Cache
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by namespace and result",
		}, []string{"namespace", "result"}),
		CacheErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache backend errors",
		}, []string{"namespace", "operation"}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retried requests to paper sources",
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of pipeline events published",
		}, []string{"event_type", "result"}),

		// History
		SearchesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_recorded_total",
			Help:      "Total number of completed searches written to history by result",
		}, []string{"result"}),
	}
}

// RecordSearch records a completed aggregated search.
func (m *Metrics) RecordSearch(returned int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.PapersReturned.Observe(float64(returned))
}

// RecordSearchDegraded records a search that fell back to an empty result.
func (m *Metrics) RecordSearchDegraded() {
	if m == nil {
		return
	}
	m.SearchesDegraded.Inc()
}

// RecordPapersDiscovered records papers contributed by a source.
func (m *Metrics) RecordPapersDiscovered(source string, count int) {
	if m == nil {
		return
	}
	m.PapersBySource.WithLabelValues(source).Add(float64(count))
}

// RecordPaperDuplicates records multiple duplicate papers in a single call.
func (m *Metrics) RecordPaperDuplicates(count int) {
	if m == nil {
		return
	}
	m.PapersDuplicate.Add(float64(count))
}

// RecordPapersFiltered records papers excluded by filters.
func (m *Metrics) RecordPapersFiltered(count int) {
	if m == nil {
		return
	}
	m.PapersFiltered.Add(float64(count))
}

// RecordEnrichment records the outcome of a single enrichment attempt.
func (m *Metrics) RecordEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.EnrichmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss for a key namespace.
func (m *Metrics) RecordCacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// RecordCacheError records a cache backend failure.
func (m *Metrics) RecordCacheError(namespace, operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(namespace, operation).Inc()
}

// RecordSourceRequest records a request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRetry records a retried request to a paper source.
func (m *Metrics) RecordSourceRetry(source string) {
	if m == nil {
		return
	}
	m.SourceRetries.WithLabelValues(source).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordEventPublished records the result of publishing a pipeline event.
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordSearchHistory records the result of storing a completed search.
func (m *Metrics) RecordSearchHistory(result string) {
	if m == nil {
		return
	}
	m.SearchesRecorded.WithLabelValues(result).Inc()
}
