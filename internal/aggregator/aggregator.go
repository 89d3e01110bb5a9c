// Package aggregator runs the paper search pipeline: a single primary source
// fetch, best-effort citation enrichment, deduplication, filtering, ranking
// and truncation.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/events"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultEnrichmentWorkers is the number of concurrent citation lookups.
	DefaultEnrichmentWorkers = 4
	// MaxEnrichmentWorkers caps the enrichment pool size.
	MaxEnrichmentWorkers = 16
)

// Enrichment outcomes recorded in metrics.
const (
	enrichmentEnriched = "enriched"
	enrichmentMissing  = "missing"
	enrichmentFailed   = "failed"
)

// Config holds orchestrator settings.
type Config struct {
	// DefaultLimit is used when a caller passes a non-positive limit.
	DefaultLimit int
	// EnrichmentWorkers bounds concurrent citation lookups.
	EnrichmentWorkers int
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = domain.DefaultSearchLimit
	}
	if c.EnrichmentWorkers <= 0 {
		c.EnrichmentWorkers = DefaultEnrichmentWorkers
	}
	if c.EnrichmentWorkers > MaxEnrichmentWorkers {
		c.EnrichmentWorkers = MaxEnrichmentWorkers
	}
	return c
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPublisher sets the publisher for search-completed events.
func WithPublisher(p events.Publisher) Option {
	return func(a *Aggregator) { a.publisher = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator orchestrates aggregated paper searches. SearchPapers never
// returns an error: every failure degrades to fewer or no papers.
type Aggregator struct {
	primary   papersources.PrimarySource
	enricher  papersources.CitationEnricher
	publisher events.Publisher
	metrics   *observability.Metrics
	config    Config
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates an Aggregator. enricher may be nil, in which case the
// enrichment stage is skipped.
func New(primary papersources.PrimarySource, enricher papersources.CitationEnricher, cfg Config, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		primary:   primary,
		enricher:  enricher,
		publisher: events.NoopPublisher{},
		config:    cfg.withDefaults(),
		logger:    logger.With().Str("component", "aggregator").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SearchPapers runs the full pipeline for query. A non-positive limit means
// the configured default. The result is always well formed; a panic anywhere
// in the pipeline yields an empty result.
func (a *Aggregator) SearchPapers(ctx context.Context, query string, filters domain.SearchFilters, limit int) (result *domain.EnhancedSearchResult) {
	start := a.now()
	if limit <= 0 {
		limit = a.config.DefaultLimit
	}

	searchID := observability.SearchIDFromContext(ctx)
	if searchID == "" {
		searchID = uuid.NewString()
		ctx = observability.WithSearchID(ctx, searchID)
	}
	logger := observability.WithSearchContext(observability.WithRequestContext(ctx, a.logger), searchID, query)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("search pipeline panicked, returning empty result")
			a.metrics.RecordSearchDegraded()
			result = domain.EmptySearchResult(filters, a.elapsedMs(start))
		}
	}()

	papers := a.primary.FetchPrimary(ctx, query, limit)
	sourceType := a.primary.SourceType()

	sources := []domain.SourceType{}
	if len(papers) > 0 {
		sources = append(sources, sourceType)
		a.metrics.RecordPapersDiscovered(string(sourceType), len(papers))
	}

	if len(papers) > 0 && a.enricher != nil {
		a.enrich(ctx, logger, papers, sourceType)
	}
	for i := range papers {
		papers[i].FillSourceCounts()
	}

	papers, duplicates := deduplicate(papers)
	a.metrics.RecordPaperDuplicates(duplicates)

	beforeFilter := len(papers)
	papers = applyFilters(papers, filters)
	a.metrics.RecordPapersFiltered(beforeFilter - len(papers))

	sortPapers(papers, filters.EffectiveSortBy(), filters.EffectiveSortOrder())

	total := len(papers)
	if len(papers) > limit {
		papers = papers[:limit]
	}

	elapsed := a.elapsedMs(start)
	result = &domain.EnhancedSearchResult{
		Papers:         papers,
		Total:          total,
		FiltersApplied: filters,
		Sources:        sources,
		SearchTime:     elapsed,
	}

	a.metrics.RecordSearch(len(papers), float64(elapsed)/1000)
	logger.Info().
		Int("limit", limit).
		Int("total", total).
		Int("returned", len(papers)).
		Int("duplicates", duplicates).
		Int("filtered_out", beforeFilter-total).
		Int64("search_time_ms", elapsed).
		Msg("search completed")

	a.publishCompleted(ctx, logger, searchID, query, limit, result)
	return result
}

// enrich looks up citation data for every primary-source paper that has a
// DOI but no citation count. Lookups run on a bounded pool; each task writes
// only to its own slice element, so input order is preserved.
func (a *Aggregator) enrich(ctx context.Context, logger zerolog.Logger, papers []domain.Paper, primary domain.SourceType) {
	var g errgroup.Group
	g.SetLimit(a.config.EnrichmentWorkers)

	for i := range papers {
		p := &papers[i]
		if p.Source != primary || p.DOI == "" || p.CitedByCount != nil {
			continue
		}
		g.Go(func() error {
			a.enrichOne(ctx, logger, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) enrichOne(ctx context.Context, logger zerolog.Logger, p *domain.Paper) {
	defer func() {
		if r := recover(); r != nil {
			paperLogger := observability.WithPaperContext(logger, p.ID, p.DOI)
			paperLogger.Warn().
				Str("panic", fmt.Sprint(r)).
				Msg("citation enrichment failed")
			a.metrics.RecordEnrichment(enrichmentFailed)
		}
	}()

	record := a.enricher.LookupCitationData(ctx, p.DOI, domain.IdentifierKindDOI)
	if record == nil {
		a.metrics.RecordEnrichment(enrichmentMissing)
		return
	}

	mergeCitationRecord(p, record, a.now().UTC())
	a.metrics.RecordEnrichment(enrichmentEnriched)
}

// mergeCitationRecord copies enrichment fields from record onto p. Absent
// values in the record never clear existing paper data.
func mergeCitationRecord(p *domain.Paper, record *domain.CitationRecord, now time.Time) {
	if record.CitedByCount != nil {
		p.CitedByCount = record.CitedByCount
	}
	if record.ReferenceCount != nil {
		p.ReferenceCount = record.ReferenceCount
	}
	if record.OpenAccess != nil {
		p.OpenAccess = record.OpenAccess
	}
	if len(record.FieldOfStudy) > 0 {
		p.FieldOfStudy = record.FieldOfStudy
	}
	if record.TLDR != "" {
		p.TLDR = record.TLDR
	}
	if p.VenueType == "" && record.VenueType != "" {
		p.VenueType = record.VenueType
	}
	p.UpdatedAt = now
}

// deduplicate keeps the first paper seen for each dedup key and reports how
// many were dropped.
func deduplicate(papers []domain.Paper) ([]domain.Paper, int) {
	seen := make(map[string]struct{}, len(papers))
	out := make([]domain.Paper, 0, len(papers))
	for i := range papers {
		key := papers[i].DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, papers[i])
	}
	return out, len(papers) - len(out)
}

func (a *Aggregator) publishCompleted(ctx context.Context, logger zerolog.Logger, searchID, query string, limit int, result *domain.EnhancedSearchResult) {
	event, err := domain.NewEvent(domain.EventTypeSearchCompleted, searchID, domain.SearchCompletedPayload{
		SearchID:       searchID,
		Query:          query,
		Limit:          limit,
		Total:          result.Total,
		Returned:       len(result.Papers),
		Sources:        result.Sources,
		FiltersApplied: result.FiltersApplied,
		SearchTimeMs:   result.SearchTime,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build search completed event")
		return
	}
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		event.WithMetadata(map[string]any{"request_id": requestID})
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish search completed event")
	}
}

func (a *Aggregator) elapsedMs(start time.Time) int64 {
	ms := a.now().Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
