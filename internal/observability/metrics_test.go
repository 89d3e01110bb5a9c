package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paper_discovery_new")

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchesDegraded)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.PapersReturned)
	assert.NotNil(t, m.PapersBySource)
	assert.NotNil(t, m.PapersDuplicate)
	assert.NotNil(t, m.PapersFiltered)
	assert.NotNil(t, m.EnrichmentsTotal)
	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.CacheErrors)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRequestsFailed)
	assert.NotNil(t, m.SourceRetries)
	assert.NotNil(t, m.SourceRateLimited)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.SearchesRecorded)
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics("test_record_search")

	m.RecordSearch(5, 0.8)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal))

	count, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	count, err = getHistogramSampleCount(m.PapersReturned)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordSearchDegraded(t *testing.T) {
	m := NewMetrics("test_search_degraded")

	m.RecordSearchDegraded()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesDegraded))
}

func TestRecordPapers(t *testing.T) {
	m := NewMetrics("test_record_papers")

	m.RecordPapersDiscovered("openalex", 7)
	m.RecordPaperDuplicates(2)
	m.RecordPapersFiltered(3)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.PapersBySource.WithLabelValues("openalex")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PapersDuplicate))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PapersFiltered))
}

func TestRecordEnrichment(t *testing.T) {
	m := NewMetrics("test_record_enrichment")

	m.RecordEnrichment("enriched")
	m.RecordEnrichment("enriched")
	m.RecordEnrichment("failed")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EnrichmentsTotal.WithLabelValues("enriched")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EnrichmentsTotal.WithLabelValues("failed")))
}

func TestRecordCache(t *testing.T) {
	m := NewMetrics("test_record_cache")

	m.RecordCacheLookup("s2:citation", true)
	m.RecordCacheLookup("s2:citation", false)
	m.RecordCacheLookup("s2:citation", false)
	m.RecordCacheError("s2:citation", "get")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("s2:citation", "hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheLookups.WithLabelValues("s2:citation", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("s2:citation", "get")))
}

func TestRecordSourceRequest(t *testing.T) {
	m := NewMetrics("test_source_request")

	m.RecordSourceRequest("openalex", "/works", 0.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("openalex", "/works")))
}

func TestRecordSourceFailures(t *testing.T) {
	m := NewMetrics("test_source_failures")

	m.RecordSourceRequestFailed("semantic_scholar", "/paper", "server_error")
	m.RecordSourceRetry("semantic_scholar")
	m.RecordSourceRateLimited("semantic_scholar")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("semantic_scholar", "/paper", "server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRetries.WithLabelValues("semantic_scholar")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("semantic_scholar")))
}

func TestRecordEventPublished(t *testing.T) {
	m := NewMetrics("test_event_published")

	m.RecordEventPublished("papers.search_completed", nil)
	m.RecordEventPublished("papers.search_completed", errors.New("broker down"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("papers.search_completed", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("papers.search_completed", "error")))
}

func TestRecordSearchHistory(t *testing.T) {
	m := NewMetrics("test_search_history")

	m.RecordSearchHistory("recorded")
	m.RecordSearchHistory("recorded")
	m.RecordSearchHistory("duplicate")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SearchesRecorded.WithLabelValues("recorded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesRecorded.WithLabelValues("duplicate")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSearch(1, 0.1)
		m.RecordSearchDegraded()
		m.RecordPapersDiscovered("openalex", 1)
		m.RecordPaperDuplicates(1)
		m.RecordPapersFiltered(1)
		m.RecordEnrichment("failed")
		m.RecordCacheLookup("ns", true)
		m.RecordCacheError("ns", "set")
		m.RecordSourceRequest("openalex", "/works", 0.1)
		m.RecordSourceRequestFailed("openalex", "/works", "network")
		m.RecordSourceRetry("openalex")
		m.RecordSourceRateLimited("openalex")
		m.RecordEventPublished("e", nil)
		m.RecordSearchHistory("recorded")
	})
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
