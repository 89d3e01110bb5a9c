package openalex

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

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultMaxResults is the page size used when the caller gives no limit.
	DefaultMaxResults = 25

	// MaxPerPage is the largest page size the works endpoint accepts.
	MaxPerPage = 200

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	// maxResponseBytes bounds decoded response bodies.
	maxResponseBytes = 10 << 20
)

// Config holds configuration for the OpenAlex adapter.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// APIKey is the optional premium API key, sent as the api_key parameter.
	APIKey string

	// MaxResults is the page size when a search has no positive limit.
	// Capped at 200.
	MaxResults int

	// ConceptRules drive query expansion. Nil disables it.
	ConceptRules []ConceptRule
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxResults > MaxPerPage {
		c.MaxResults = MaxPerPage
	}
}

// Client is the primary source adapter for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	expander   *QueryExpander
	logger     zerolog.Logger
	now        func() time.Time
}

// Ensure Client implements PrimarySource.
var _ papersources.PrimarySource = (*Client)(nil)

// New creates an OpenAlex adapter that issues requests through httpClient.
func New(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		expander:   NewQueryExpander(cfg.ConceptRules),
		logger:     observability.WithSourceContext(logger, string(domain.SourceTypeOpenAlex)),
		now:        time.Now,
	}
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// FetchPrimary searches OpenAlex and returns normalized papers. Any failure
// is logged and yields an empty slice.
func (c *Client) FetchPrimary(ctx context.Context, query string, limit int) []domain.Paper {
	papers, err := c.Search(ctx, query, limit)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Int("limit", limit).Msg("primary source search failed")
		return []domain.Paper{}
	}
	return papers
}

// Search queries the works endpoint once and normalizes the results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Paper, error) {
	searchURL, err := c.buildSearchURL(query, limit)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(papersources.WithEndpoint(ctx, "works"), http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			string(domain.SourceTypeOpenAlex),
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	now := c.now()
	papers := make([]domain.Paper, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if paper, ok := workToPaper(&searchResp.Results[i], now); ok {
			papers = append(papers, paper)
		}
	}

	c.logger.Debug().
		Str("query", query).
		Int("returned", len(papers)).
		Int("total_available", searchResp.Meta.Count).
		Msg("primary source search completed")

	return papers, nil
}

// buildSearchURL constructs the works search URL.
func (c *Client) buildSearchURL(query string, limit int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimSuffix(baseURL.Path, "/") + "/works"

	perPage := limit
	if perPage <= 0 {
		perPage = c.config.MaxResults
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("per_page", strconv.Itoa(perPage))

	if filter := c.expander.ConceptFilter(query); filter != "" {
		params.Set("filter", filter)
	}

	// Add mailto for polite pool
	if c.config.Email != "" {
		params.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}

// workToPaper converts an OpenAlex Work to a domain Paper. It is the only
// place where OpenAlex defaults are applied. Works without an ID or title
// are skipped.
func workToPaper(work *Work, now time.Time) (domain.Paper, bool) {
	openAlexID := normalizeOpenAlexID(work.ID)
	if openAlexID == "" {
		openAlexID = normalizeOpenAlexID(work.IDs.OpenAlex)
	}

	title := strings.TrimSpace(work.DisplayName)
	if title == "" {
		title = strings.TrimSpace(work.Title)
	}
	if openAlexID == "" || title == "" {
		return domain.Paper{}, false
	}

	doi := normalizeDOI(work.DOI)
	if doi == "" {
		doi = normalizeDOI(work.IDs.DOI)
	}

	authors := make([]string, 0, len(work.Authorships))
	for _, a := range work.Authorships {
		if name := strings.TrimSpace(a.Author.DisplayName); name != "" {
			authors = append(authors, name)
		}
	}

	year := now.Year()
	if work.PublicationYear != nil && *work.PublicationYear > 0 {
		year = *work.PublicationYear
	}

	var venue, sourceType, landingURL string
	if loc := work.PrimaryLocation; loc != nil {
		landingURL = loc.LandingPageURL
		if loc.Source != nil {
			venue = strings.TrimSpace(loc.Source.DisplayName)
			sourceType = loc.Source.Type
		}
	}
	journal := venue
	if journal == "" {
		journal = domain.UnknownJournal
	}

	paperURL := landingURL
	if paperURL == "" {
		paperURL = work.ID
	}

	var openAccess *domain.OpenAccessInfo
	if work.OpenAccess != nil {
		openAccess = &domain.OpenAccessInfo{
			IsOA:                     work.OpenAccess.IsOA,
			OAURL:                    work.OpenAccess.OAURL,
			AnyRepositoryHasFulltext: work.OpenAccess.AnyRepositoryHasFulltext,
		}
	}

	var pdfURL string
	if work.BestOALocation != nil && work.BestOALocation.PDFURL != "" {
		pdfURL = work.BestOALocation.PDFURL
	} else if work.PrimaryLocation != nil {
		pdfURL = work.PrimaryLocation.PDFURL
	}

	return domain.Paper{
		ID:           "openalex:" + openAlexID,
		Title:        title,
		Authors:      authors,
		Abstract:     reconstructAbstract(work.AbstractInvertedIndex),
		Year:         year,
		Journal:      journal,
		Venue:        venue,
		URL:          paperURL,
		DOI:          doi,
		PDFURL:       pdfURL,
		OpenAccess:   openAccess,
		FieldOfStudy: fieldsOfStudy(work.Concepts),
		VenueType:    domain.ClassifyVenue([]string{work.Type, sourceType}, venue),
		Source:       domain.SourceTypeOpenAlex,
		CreatedAt:    now,
		UpdatedAt:    now,

		SourceCitedByCount:   copyInt(work.CitedByCount),
		SourceReferenceCount: copyInt(work.ReferencedWorksCount),
	}, true
}

// fieldsOfStudy returns the names of broad (level 0 or 1), positively scored
// concepts, without duplicates.
func fieldsOfStudy(concepts []Concept) []string {
	var fields []string
	seen := make(map[string]struct{})
	for _, c := range concepts {
		if c.Level > 1 || c.Score <= 0 || c.DisplayName == "" {
			continue
		}
		if _, ok := seen[c.DisplayName]; ok {
			continue
		}
		seen[c.DisplayName] = struct{}{}
		fields = append(fields, c.DisplayName)
	}
	return fields
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return domain.IntPtr(*v)
}

// normalizeDOI strips the https://doi.org/ prefix from DOIs and returns lowercase.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(id, openAlexIDPrefix))
}
