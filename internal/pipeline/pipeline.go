// Package pipeline assembles the cache, source adapters and orchestrator
// from configuration. Both the API server and the CLI build their search
// stack through it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/aggregator"
	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/database"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/events"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/papersources/openalex"
	"github.com/helixir/paper-discovery-service/internal/papersources/semanticscholar"
)

// CacheStore is an opened cache together with its lifecycle hooks.
type CacheStore struct {
	// Cache is the cache-aside front used by adapters.
	Cache *cache.Aside
	// Purger is set for persistent backends that can drop expired rows.
	Purger cache.Purger
	// Backend is the backend name that was opened.
	Backend string

	closeFn func() error
}

// Close releases backend resources.
func (s *CacheStore) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// OpenCache opens the configured cache backend. db is required only for
// the postgres backend.
func OpenCache(cfg config.CacheConfig, db database.DBTX, metrics *observability.Metrics, logger zerolog.Logger) (*CacheStore, error) {
	store := &CacheStore{Backend: cfg.Backend}
	var backend cache.Backend

	switch cfg.Backend {
	case config.CacheBackendMemory:
		mem, err := cache.NewMemoryBackend(cfg.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("open memory cache: %w", err)
		}
		backend = mem
	case config.CacheBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres cache backend requires a database connection")
		}
		pg := cache.NewPostgresBackend(db)
		backend = pg
		store.Purger = pg
	case config.CacheBackendSQLite:
		lite, err := cache.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		backend = lite
		store.Purger = lite
		store.closeFn = lite.Close
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	store.Cache = cache.NewAside(backend, logger, cache.WithMetrics(metrics))
	logger.Info().Str("backend", cfg.Backend).Dur("ttl", cfg.TTL).Msg("cache opened")
	return store, nil
}

// Pipeline is the assembled search stack.
type Pipeline struct {
	Primary *openalex.Client
	// Secondary is nil when Semantic Scholar is disabled.
	Secondary  *semanticscholar.Client
	Aggregator *aggregator.Aggregator
}

// Citations returns the citation enricher, or nil when disabled.
func (p *Pipeline) Citations() papersources.CitationEnricher {
	if p.Secondary == nil {
		return nil
	}
	return p.Secondary
}

// Related returns the related-paper source, or nil when disabled.
func (p *Pipeline) Related() papersources.RelatedPaperSource {
	if p.Secondary == nil {
		return nil
	}
	return p.Secondary
}

// SearchPapers delegates to the orchestrator.
func (p *Pipeline) SearchPapers(ctx context.Context, query string, filters domain.SearchFilters, limit int) *domain.EnhancedSearchResult {
	return p.Aggregator.SearchPapers(ctx, query, filters, limit)
}

// Build wires the adapters and orchestrator. publisher may be nil.
func Build(cfg *config.Config, c cache.Cache, publisher events.Publisher, metrics *observability.Metrics, logger zerolog.Logger) (*Pipeline, error) {
	oaCfg := cfg.PaperSources.OpenAlex
	if !oaCfg.Enabled {
		return nil, fmt.Errorf("the openalex primary source must be enabled")
	}

	oaHTTP := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:     string(domain.SourceTypeOpenAlex),
		Timeout:    oaCfg.Timeout,
		RateLimit:  oaCfg.RateLimit,
		MaxRetries: oaCfg.MaxRetries,
		RetryDelay: oaCfg.RetryDelay,
		Metrics:    metrics,
	})

	var rules []openalex.ConceptRule
	if cfg.QueryExpansion.Enabled {
		rules = conceptRules(cfg.QueryExpansion.Rules)
	}

	p := &Pipeline{
		Primary: openalex.New(openalex.Config{
			BaseURL:      oaCfg.BaseURL,
			Email:        oaCfg.Email,
			APIKey:       oaCfg.APIKey,
			MaxResults:   oaCfg.MaxResults,
			ConceptRules: rules,
		}, oaHTTP, logger),
	}
	logger.Info().Bool("query_expansion", len(rules) > 0).Msg("primary source configured: OpenAlex")

	var enricher papersources.CitationEnricher
	if ssCfg := cfg.PaperSources.SemanticScholar; ssCfg.Enabled {
		ssHTTP := papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       string(domain.SourceTypeSemanticScholar),
			Timeout:      ssCfg.Timeout,
			RateLimit:    ssCfg.RateLimit,
			MaxRetries:   ssCfg.MaxRetries,
			RetryDelay:   ssCfg.RetryDelay,
			APIKey:       ssCfg.APIKey,
			APIKeyHeader: semanticscholar.APIKeyHeader,
			Metrics:      metrics,
		})
		p.Secondary = semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:            ssCfg.BaseURL,
			RecommendationsURL: ssCfg.RecommendationsURL,
			MaxResults:         ssCfg.MaxResults,
			CacheTTL:           cfg.Cache.TTL,
		}, ssHTTP, c, logger)
		enricher = p.Secondary
		logger.Info().Bool("api_key", ssCfg.APIKey != "").Msg("enrichment source configured: Semantic Scholar")
	}

	opts := []aggregator.Option{aggregator.WithMetrics(metrics)}
	if publisher != nil {
		opts = append(opts, aggregator.WithPublisher(publisher))
	}
	p.Aggregator = aggregator.New(p.Primary, enricher, aggregator.Config{
		DefaultLimit:      cfg.Aggregation.DefaultLimit,
		EnrichmentWorkers: cfg.Aggregation.EnrichmentWorkers,
	}, logger, opts...)

	return p, nil
}

// NewPublisher returns a Kafka publisher when enabled, otherwise a no-op.
func NewPublisher(cfg config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled {
		return events.NoopPublisher{}
	}
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka event publisher enabled")
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}, metrics, logger)
}

// conceptRules converts configured rules, falling back to the built-in
// table when none are configured.
func conceptRules(configured []config.ConceptRuleConfig) []openalex.ConceptRule {
	if len(configured) == 0 {
		return openalex.DefaultConceptRules()
	}
	rules := make([]openalex.ConceptRule, 0, len(configured))
	for _, r := range configured {
		rules = append(rules, openalex.ConceptRule{
			Name:       r.Name,
			Keywords:   r.Keywords,
			ConceptIDs: r.ConceptIDs,
		})
	}
	return rules
}
