package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRecommendationsURL is the default base URL for the Recommendations API.
	DefaultRecommendationsURL = "https://api.semanticscholar.org/recommendations/v1"

	// DefaultMaxResults is the result count used when the caller gives no limit.
	DefaultMaxResults = 10

	// MaxResults is the largest page the search endpoint accepts.
	MaxResults = 100

	// DefaultCacheTTL is how long lookups are cached.
	DefaultCacheTTL = 30 * 24 * time.Hour

	// APIKeyHeader is the header name for the Semantic Scholar API key.
	APIKeyHeader = "x-api-key"

	// Cache key namespaces.
	citationNamespace        = "s2:citation"
	searchNamespace          = "s2:search"
	recommendationsNamespace = "s2:recommendations"

	// lookupFields is requested for direct paper lookups.
	lookupFields = "paperId,externalIds,url,title,year,venue,journal,publicationTypes,citationCount,referenceCount,isOpenAccess,openAccessPdf,fieldsOfStudy,s2FieldsOfStudy,tldr"

	// searchFields is requested for searches and recommendations; the search
	// endpoint does not serve tldr.
	searchFields = "paperId,externalIds,url,title,abstract,year,venue,journal,publicationTypes,authors,citationCount,referenceCount,isOpenAccess,openAccessPdf,fieldsOfStudy,s2FieldsOfStudy"

	paperURLPrefix   = "https://www.semanticscholar.org/paper/"
	maxResponseBytes = 10 << 20
)

// Config contains configuration options for the Semantic Scholar adapter.
type Config struct {
	// BaseURL is the Graph API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// RecommendationsURL is the Recommendations API base URL.
	// Defaults to DefaultRecommendationsURL.
	RecommendationsURL string

	// MaxResults is the result count when a search has no positive limit.
	MaxResults int

	// CacheTTL is the lifetime of cached lookups. Defaults to 30 days.
	CacheTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RecommendationsURL == "" {
		c.RecommendationsURL = DefaultRecommendationsURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxResults > MaxResults {
		c.MaxResults = MaxResults
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// Client is the Semantic Scholar enrichment adapter.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	cache      cache.Cache
	logger     zerolog.Logger
	now        func() time.Time
}

// Compile-time checks.
var (
	_ papersources.CitationEnricher   = (*Client)(nil)
	_ papersources.RelatedPaperSource = (*Client)(nil)
)

// NewClient creates an adapter that issues requests through httpClient and
// caches results in c.
func NewClient(cfg Config, httpClient *papersources.HTTPClient, c cache.Cache, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		cache:      c,
		logger:     observability.WithSourceContext(logger, string(domain.SourceTypeSemanticScholar)),
		now:        time.Now,
	}
}

// LookupCitationData returns citation metadata for a DOI or a title. It
// returns nil when the identifier is empty, the kind is unknown, the paper
// does not exist upstream, or the lookup failed.
func (c *Client) LookupCitationData(ctx context.Context, identifier string, kind domain.IdentifierKind) *domain.CitationRecord {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" || !kind.IsValid() {
		return nil
	}

	key := cache.Key(citationNamespace, string(kind), id)
	record, err := cache.FetchJSON(ctx, c.cache, key, c.config.CacheTTL, func(ctx context.Context) (*domain.CitationRecord, error) {
		var (
			result *PaperResult
			err    error
		)
		switch kind {
		case domain.IdentifierKindDOI:
			result, err = c.fetchPaper(ctx, "DOI:"+id)
		case domain.IdentifierKindTitle:
			result, err = c.firstSearchHit(ctx, strings.TrimSpace(identifier))
		}
		if err != nil || result == nil {
			return nil, err
		}
		return toCitationRecord(result), nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("identifier", identifier).Str("kind", string(kind)).Msg("citation lookup failed")
		return nil
	}
	return record
}

// Search runs a relevance search and returns up to limit normalized papers.
// A nil or empty fields list requests the default field set.
func (c *Client) Search(ctx context.Context, query string, limit int, fields []string) []domain.Paper {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Paper{}
	}
	limit = c.clampLimit(limit)
	fieldList := searchFields
	if len(fields) > 0 {
		fieldList = strings.Join(fields, ",")
	}

	key := cache.Key(searchNamespace, strings.ToLower(query), strconv.Itoa(limit), fieldList)
	results, err := cache.FetchJSON(ctx, c.cache, key, c.config.CacheTTL, func(ctx context.Context) ([]PaperResult, error) {
		return c.search(ctx, query, limit, fieldList)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("paper search failed")
		return []domain.Paper{}
	}
	return c.toPapers(results)
}

// Recommendations returns up to limit papers recommended for paperID.
func (c *Client) Recommendations(ctx context.Context, paperID string, limit int) []domain.Paper {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return []domain.Paper{}
	}
	limit = c.clampLimit(limit)

	key := cache.Key(recommendationsNamespace, paperID, strconv.Itoa(limit))
	results, err := cache.FetchJSON(ctx, c.cache, key, c.config.CacheTTL, func(ctx context.Context) ([]PaperResult, error) {
		return c.recommendations(ctx, paperID, limit)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("paper_id", paperID).Msg("recommendations lookup failed")
		return []domain.Paper{}
	}
	return c.toPapers(results)
}

func (c *Client) clampLimit(limit int) int {
	if limit <= 0 {
		return c.config.MaxResults
	}
	return min(limit, MaxResults)
}

// fetchPaper looks up a single paper. A 404 yields (nil, nil) so that the
// absence is cached.
func (c *Client) fetchPaper(ctx context.Context, id string) (*PaperResult, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u := base.JoinPath("paper", id)
	u.RawQuery = url.Values{"fields": {lookupFields}}.Encode()

	var result PaperResult
	found, err := c.getJSON(ctx, "paper", u.String(), &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}

// firstSearchHit returns the best search match for title, or nil.
func (c *Client) firstSearchHit(ctx context.Context, title string) (*PaperResult, error) {
	results, err := c.search(ctx, title, 1, searchFields)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

func (c *Client) search(ctx context.Context, query string, limit int, fields string) ([]PaperResult, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u := base.JoinPath("paper", "search")
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", fields)
	u.RawQuery = q.Encode()

	var resp SearchResponse
	if _, err := c.getJSON(ctx, "search", u.String(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []PaperResult{}, nil
	}
	return resp.Data, nil
}

func (c *Client) recommendations(ctx context.Context, paperID string, limit int) ([]PaperResult, error) {
	base, err := url.Parse(c.config.RecommendationsURL)
	if err != nil {
		return nil, fmt.Errorf("parsing recommendations URL: %w", err)
	}
	u := base.JoinPath("papers", "forpaper", paperID)
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", searchFields)
	u.RawQuery = q.Encode()

	var resp RecommendationsResponse
	if _, err := c.getJSON(ctx, "recommendations", u.String(), &resp); err != nil {
		return nil, err
	}
	if resp.RecommendedPapers == nil {
		return []PaperResult{}, nil
	}
	return resp.RecommendedPapers, nil
}

// getJSON issues a GET and decodes a 2xx body into out. It reports false
// without error on 404.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(papersources.WithEndpoint(ctx, endpoint), http.MethodGet, rawURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return false, nil
	}
	if err := handleErrorResponse(resp); err != nil {
		return false, err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}
	return true, nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	source := string(domain.SourceTypeSemanticScholar)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(source, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(source, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(source, resp.StatusCode, string(body), nil)
}

func (c *Client) toPapers(results []PaperResult) []domain.Paper {
	now := c.now()
	papers := make([]domain.Paper, 0, len(results))
	for i := range results {
		if results[i].PaperID == "" || strings.TrimSpace(results[i].Title) == "" {
			continue
		}
		papers = append(papers, toPaper(&results[i], now))
	}
	return papers
}

// toPaper converts an API result to a domain paper. It is the only place
// where Semantic Scholar defaults are applied.
func toPaper(r *PaperResult, now time.Time) domain.Paper {
	authors := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	abstract := strings.TrimSpace(r.Abstract)
	if abstract == "" {
		abstract = domain.NoAbstract
	}

	year := now.Year()
	if r.Year != nil && *r.Year > 0 {
		year = *r.Year
	}

	journal := r.Venue
	if r.Journal != nil && r.Journal.Name != "" {
		journal = r.Journal.Name
	}
	if journal == "" {
		journal = domain.UnknownJournal
	}

	paperURL := r.URL
	if paperURL == "" {
		paperURL = paperURLPrefix + r.PaperID
	}

	var tldr string
	if r.TLDR != nil {
		tldr = r.TLDR.Text
	}

	return domain.Paper{
		ID:             "s2:" + r.PaperID,
		Title:          strings.TrimSpace(r.Title),
		Authors:        authors,
		Abstract:       abstract,
		Year:           year,
		Journal:        journal,
		Venue:          r.Venue,
		URL:            paperURL,
		DOI:            doiOf(r),
		PDFURL:         pdfURLOf(r),
		CitedByCount:   r.CitationCount,
		ReferenceCount: r.ReferenceCount,
		OpenAccess:     openAccessOf(r),
		FieldOfStudy:   fieldsOfStudy(r),
		VenueType:      venueTypeOf(r),
		Source:         domain.SourceTypeSemanticScholar,
		TLDR:           tldr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func toCitationRecord(r *PaperResult) *domain.CitationRecord {
	var tldr string
	if r.TLDR != nil {
		tldr = r.TLDR.Text
	}
	return &domain.CitationRecord{
		PaperID:        r.PaperID,
		Title:          r.Title,
		DOI:            doiOf(r),
		CitedByCount:   r.CitationCount,
		ReferenceCount: r.ReferenceCount,
		OpenAccess:     openAccessOf(r),
		FieldOfStudy:   fieldsOfStudy(r),
		TLDR:           tldr,
		Venue:          r.Venue,
		VenueType:      venueTypeOf(r),
	}
}

func doiOf(r *PaperResult) string {
	if r.ExternalIDs == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(r.ExternalIDs.DOI))
}

func pdfURLOf(r *PaperResult) string {
	if r.OpenAccessPDF == nil {
		return ""
	}
	return r.OpenAccessPDF.URL
}

// openAccessOf returns nil when the response carried no open access flag.
func openAccessOf(r *PaperResult) *domain.OpenAccessInfo {
	if r.IsOpenAccess == nil {
		return nil
	}
	return &domain.OpenAccessInfo{
		IsOA:  *r.IsOpenAccess,
		OAURL: pdfURLOf(r),
	}
}

func venueTypeOf(r *PaperResult) domain.VenueType {
	if len(r.PublicationTypes) == 0 && r.Venue == "" {
		return ""
	}
	return domain.ClassifyVenue(r.PublicationTypes, r.Venue)
}

// fieldsOfStudy merges the curated and classifier-assigned fields, keeping
// first occurrence order.
func fieldsOfStudy(r *PaperResult) []string {
	var fields []string
	seen := make(map[string]struct{})
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" {
			return
		}
		k := strings.ToLower(f)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		fields = append(fields, f)
	}
	for _, f := range r.FieldsOfStudy {
		add(f)
	}
	for _, f := range r.S2FieldsOfStudy {
		add(f.Category)
	}
	return fields
}
