// Package observability provides logging and metrics support for the paper
// discovery service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, enrichment, cache, and sources
//   - Context helpers for propagating request and search IDs
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithSearchContext(logger, searchID, query)
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_discovery")
//	metrics.RecordCacheLookup("s2:citation", true)
//	metrics.RecordEnrichment("enriched")
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - search_id: aggregated search identifier
//   - query: free-text search query
//   - source: paper source (openalex, semantic_scholar)
//   - paper_id: paper identifier
//   - doi: paper DOI
package observability
