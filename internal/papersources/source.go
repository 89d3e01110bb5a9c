// Package papersources holds the shared HTTP plumbing for the bibliographic
// sources the paper discovery pipeline talks to, plus the contracts the
// aggregator consumes.
//
// Each upstream lives in its own subpackage (openalex, semanticscholar) and
// issues requests through HTTPClient, which rate-limits and retries transient
// failures. The aggregator depends only on the interfaces below so tests can
// substitute in-memory fakes.
//
// Example usage:
//
//	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
//		Source:    "openalex",
//		RateLimit: 10,
//	})
//	primary := openalex.New(openalex.Config{BaseURL: "https://api.openalex.org"}, httpClient, logger)
//	papers := primary.FetchPrimary(ctx, "drone swarms", 20)
package papersources

import (
	"context"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// PrimarySource queries the primary bibliographic database.
type PrimarySource interface {
	// FetchPrimary returns up to limit normalized papers for query.
	// Failures are logged by the implementation and yield an empty slice.
	FetchPrimary(ctx context.Context, query string, limit int) []domain.Paper

	// SourceType identifies the source for provenance reporting.
	SourceType() domain.SourceType
}

// CitationEnricher looks up citation metadata for a single identifier.
type CitationEnricher interface {
	// LookupCitationData returns nil when the paper is unknown or the lookup
	// failed. It never returns an error.
	LookupCitationData(ctx context.Context, identifier string, kind domain.IdentifierKind) *domain.CitationRecord
}

// RelatedPaperSource serves secondary search and recommendation lookups.
// Both return an empty slice on failure.
type RelatedPaperSource interface {
	Search(ctx context.Context, query string, limit int, fields []string) []domain.Paper
	Recommendations(ctx context.Context, paperID string, limit int) []domain.Paper
}
