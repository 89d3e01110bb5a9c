package openalex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string, rules []ConceptRule) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:        "openalex",
		Timeout:       5 * time.Second,
		RateLimit:     100,
		BurstSize:     100,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: time.Millisecond,
		UserAgent:     "TestClient/1.0",
	})

	c := New(Config{
		BaseURL:      serverURL,
		Email:        "test@example.com",
		ConceptRules: rules,
	}, httpClient, zerolog.Nop())
	c.now = func() time.Time { return fixedNow }
	return c
}

// sampleSearchResponse returns a sample OpenAlex search response for testing.
func sampleSearchResponse() SearchResponse {
	return SearchResponse{
		Meta: Meta{Count: 2, PerPage: 25, Page: 1},
		Results: []Work{
			{
				ID:                   "https://openalex.org/W2741809807",
				DOI:                  "https://doi.org/10.1038/NATURE12373",
				DisplayName:          "CRISPR-Cas Systems for Editing, Regulating and Targeting Genomes",
				PublicationYear:      domain.IntPtr(2014),
				Type:                 "article",
				CitedByCount:         domain.IntPtr(5000),
				ReferencedWorksCount: domain.IntPtr(42),
				OpenAccess: &OpenAccess{
					IsOA:                     true,
					OAURL:                    "https://europepmc.org/articles/pmc4022601",
					OAStatus:                 "gold",
					AnyRepositoryHasFulltext: true,
				},
				Authorships: []Authorship{
					{AuthorPosition: "first", Author: AuthorInfo{DisplayName: "John Smith"}},
					{AuthorPosition: "last", Author: AuthorInfo{DisplayName: "Jane Doe"}},
				},
				PrimaryLocation: &Location{
					Source:         &Source{DisplayName: "Nature Biotechnology", Type: "journal"},
					LandingPageURL: "https://www.nature.com/articles/nbt.2842",
				},
				BestOALocation: &Location{PDFURL: "https://europepmc.org/pdf/pmc4022601.pdf"},
				Concepts: []Concept{
					{DisplayName: "Biology", Level: 0, Score: 0.9},
					{DisplayName: "Genome editing", Level: 1, Score: 0.7},
					{DisplayName: "Cas9", Level: 3, Score: 0.8},
					{DisplayName: "Chemistry", Level: 0, Score: 0},
				},
				AbstractInvertedIndex: map[string][]int{
					"CRISPR": {0}, "edits": {1}, "genomes": {2},
				},
			},
			{
				ID:           "https://openalex.org/W999",
				Title:        "A Preprint Without Much Metadata",
				Type:         "preprint",
				CitedByCount: domain.IntPtr(0),
			},
		},
	}
}

func newSearchServer(t *testing.T, resp SearchResponse, capture func(*http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			capture(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		c := New(Config{}, papersources.NewHTTPClient(papersources.HTTPClientConfig{}), zerolog.Nop())
		assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
		assert.Equal(t, DefaultMaxResults, c.config.MaxResults)
		assert.Equal(t, domain.SourceTypeOpenAlex, c.SourceType())
	})

	t.Run("caps max results", func(t *testing.T) {
		c := New(Config{MaxResults: 1000}, papersources.NewHTTPClient(papersources.HTTPClientConfig{}), zerolog.Nop())
		assert.Equal(t, MaxPerPage, c.config.MaxResults)
	})
}

func TestClient_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("sends query parameters", func(t *testing.T) {
		var got *http.Request
		server := newSearchServer(t, SearchResponse{}, func(r *http.Request) { got = r })
		c := newTestClient(server.URL, nil)

		_, err := c.Search(ctx, "graph neural networks", 5)
		require.NoError(t, err)

		require.NotNil(t, got)
		assert.Equal(t, "/works", got.URL.Path)
		q := got.URL.Query()
		assert.Equal(t, "graph neural networks", q.Get("search"))
		assert.Equal(t, "5", q.Get("per_page"))
		assert.Equal(t, "test@example.com", q.Get("mailto"))
		assert.Empty(t, q.Get("filter"))
	})

	t.Run("caps per_page and defaults non-positive limits", func(t *testing.T) {
		var perPage []string
		server := newSearchServer(t, SearchResponse{}, func(r *http.Request) {
			perPage = append(perPage, r.URL.Query().Get("per_page"))
		})
		c := newTestClient(server.URL, nil)

		_, err := c.Search(ctx, "q", 500)
		require.NoError(t, err)
		_, err = c.Search(ctx, "q", 0)
		require.NoError(t, err)

		assert.Equal(t, []string{"200", "25"}, perPage)
	})

	t.Run("adds concept filter for matched keywords", func(t *testing.T) {
		var filter string
		server := newSearchServer(t, SearchResponse{}, func(r *http.Request) {
			filter = r.URL.Query().Get("filter")
		})
		c := newTestClient(server.URL, DefaultConceptRules())

		_, err := c.Search(ctx, "deep learning for cancer diagnosis", 10)
		require.NoError(t, err)
		assert.Equal(t, "concepts.id:C154945302|C119857082|C41008148|C71924100", filter)
	})

	t.Run("normalizes works", func(t *testing.T) {
		server := newSearchServer(t, sampleSearchResponse(), nil)
		c := newTestClient(server.URL, nil)

		papers, err := c.Search(ctx, "crispr", 10)
		require.NoError(t, err)
		require.Len(t, papers, 2)

		p := papers[0]
		assert.Equal(t, "openalex:W2741809807", p.ID)
		assert.Equal(t, "CRISPR-Cas Systems for Editing, Regulating and Targeting Genomes", p.Title)
		assert.Equal(t, []string{"John Smith", "Jane Doe"}, p.Authors)
		assert.Equal(t, "CRISPR edits genomes", p.Abstract)
		assert.Equal(t, 2014, p.Year)
		assert.Equal(t, "Nature Biotechnology", p.Journal)
		assert.Equal(t, "Nature Biotechnology", p.Venue)
		assert.Equal(t, "https://www.nature.com/articles/nbt.2842", p.URL)
		assert.Equal(t, "10.1038/nature12373", p.DOI)
		assert.Equal(t, "https://europepmc.org/pdf/pmc4022601.pdf", p.PDFURL)
		assert.Nil(t, p.CitedByCount, "left unknown so enrichment runs")
		assert.Nil(t, p.ReferenceCount)
		require.NotNil(t, p.SourceCitedByCount)
		assert.Equal(t, 5000, *p.SourceCitedByCount)
		require.NotNil(t, p.SourceReferenceCount)
		assert.Equal(t, 42, *p.SourceReferenceCount)
		require.NotNil(t, p.OpenAccess)
		assert.True(t, p.OpenAccess.IsOA)
		assert.True(t, p.OpenAccess.AnyRepositoryHasFulltext)
		assert.Equal(t, []string{"Biology", "Genome editing"}, p.FieldOfStudy)
		assert.Equal(t, domain.VenueTypeJournal, p.VenueType)
		assert.Equal(t, domain.SourceTypeOpenAlex, p.Source)
		assert.Equal(t, fixedNow, p.CreatedAt)
		assert.Equal(t, fixedNow, p.UpdatedAt)
	})

	t.Run("applies defaults for sparse works", func(t *testing.T) {
		server := newSearchServer(t, sampleSearchResponse(), nil)
		c := newTestClient(server.URL, nil)

		papers, err := c.Search(ctx, "crispr", 10)
		require.NoError(t, err)
		require.Len(t, papers, 2)

		p := papers[1]
		assert.Equal(t, "openalex:W999", p.ID)
		assert.Equal(t, "A Preprint Without Much Metadata", p.Title)
		assert.Empty(t, p.Authors)
		assert.Equal(t, domain.NoAbstract, p.Abstract)
		assert.Equal(t, fixedNow.Year(), p.Year)
		assert.Equal(t, domain.UnknownJournal, p.Journal)
		assert.Empty(t, p.Venue)
		assert.Equal(t, "https://openalex.org/W999", p.URL)
		assert.Nil(t, p.CitedByCount)
		require.NotNil(t, p.SourceCitedByCount)
		assert.Equal(t, 0, *p.SourceCitedByCount)
		assert.Nil(t, p.SourceReferenceCount)
		assert.Nil(t, p.OpenAccess)
		assert.Equal(t, domain.VenueTypeRepository, p.VenueType)
	})

	t.Run("skips works without id or title", func(t *testing.T) {
		resp := SearchResponse{Results: []Work{
			{ID: "", Title: "No ID"},
			{ID: "https://openalex.org/W1", Title: "  "},
			{ID: "https://openalex.org/W2", Title: "Kept"},
		}}
		server := newSearchServer(t, resp, nil)
		c := newTestClient(server.URL, nil)

		papers, err := c.Search(ctx, "q", 10)
		require.NoError(t, err)
		require.Len(t, papers, 1)
		assert.Equal(t, "openalex:W2", papers[0].ID)
	})

	t.Run("non-200 is an external API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad filter"}`))
		}))
		defer server.Close()
		c := newTestClient(server.URL, nil)

		_, err := c.Search(ctx, "q", 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrExternalAPI)
		assert.Contains(t, err.Error(), "bad filter")
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": [`))
		}))
		defer server.Close()
		c := newTestClient(server.URL, nil)

		_, err := c.Search(ctx, "q", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding response")
	})
}

func TestClient_FetchPrimary(t *testing.T) {
	ctx := context.Background()

	t.Run("returns papers on success", func(t *testing.T) {
		server := newSearchServer(t, sampleSearchResponse(), nil)
		c := newTestClient(server.URL, nil)

		papers := c.FetchPrimary(ctx, "crispr", 10)
		assert.Len(t, papers, 2)
	})

	t.Run("returns empty slice on server failure", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		c := newTestClient(server.URL, nil)

		papers := c.FetchPrimary(ctx, "q", 10)
		require.NotNil(t, papers)
		assert.Empty(t, papers)
		assert.Equal(t, int32(2), calls.Load(), "one retry configured")
	})

	t.Run("returns empty slice on unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()
		c := newTestClient(url, nil)

		papers := c.FetchPrimary(ctx, "q", 10)
		require.NotNil(t, papers)
		assert.Empty(t, papers)
	})
}

func TestNormalizeDOI(t *testing.T) {
	tests := map[string]string{
		"":                            "",
		"https://doi.org/10.1000/ABC": "10.1000/abc",
		"http://doi.org/10.1000/abc":  "10.1000/abc",
		"doi:10.1000/abc":             "10.1000/abc",
		"  10.1000/abc  ":             "10.1000/abc",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeDOI(in), "input %q", in)
	}
}

func TestFieldsOfStudy(t *testing.T) {
	got := fieldsOfStudy([]Concept{
		{DisplayName: "Computer science", Level: 0, Score: 0.5},
		{DisplayName: "Computer science", Level: 0, Score: 0.4},
		{DisplayName: "Machine learning", Level: 1, Score: 0.3},
		{DisplayName: "Graph", Level: 2, Score: 0.9},
		{DisplayName: "", Level: 0, Score: 0.9},
	})
	assert.Equal(t, []string{"Computer science", "Machine learning"}, got)
	assert.Nil(t, fieldsOfStudy(nil))
}

func TestBuildSearchURL_EscapesQuery(t *testing.T) {
	c := newTestClient("https://api.example.org/base/", nil)
	u, err := c.buildSearchURL("a&b=c", 3)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://api.example.org/base/works?"))
	assert.Contains(t, u, "search=a%26b%3Dc")
}

func TestBuildSearchURL_APIKey(t *testing.T) {
	c := newTestClient("https://api.example.org", nil)
	c.config.APIKey = "premium-key"

	u, err := c.buildSearchURL("q", 3)
	require.NoError(t, err)
	assert.Contains(t, u, "api_key=premium-key")
}

func TestWorkToPaper_ArxivArticleIsRepository(t *testing.T) {
	work := &Work{
		ID:           "https://openalex.org/W42",
		DisplayName:  "Attention Is All You Need",
		Type:         "article",
		CitedByCount: domain.IntPtr(0),
		PrimaryLocation: &Location{
			Source: &Source{DisplayName: "arXiv (Cornell University)", Type: "repository"},
		},
	}

	p, ok := workToPaper(work, fixedNow)
	require.True(t, ok)
	assert.Equal(t, domain.VenueTypeRepository, p.VenueType)
	assert.Nil(t, p.CitedByCount)
}
