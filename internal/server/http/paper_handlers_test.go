package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

type mockCitations struct {
	mock.Mock
}

func (m *mockCitations) LookupCitationData(ctx context.Context, identifier string, kind domain.IdentifierKind) *domain.CitationRecord {
	args := m.Called(ctx, identifier, kind)
	record, _ := args.Get(0).(*domain.CitationRecord)
	return record
}

type mockRelated struct {
	mock.Mock
}

func (m *mockRelated) Search(ctx context.Context, query string, limit int, fields []string) []domain.Paper {
	args := m.Called(ctx, query, limit, fields)
	papers, _ := args.Get(0).([]domain.Paper)
	return papers
}

func (m *mockRelated) Recommendations(ctx context.Context, paperID string, limit int) []domain.Paper {
	args := m.Called(ctx, paperID, limit)
	papers, _ := args.Get(0).([]domain.Paper)
	return papers
}

func TestLookupCitations(t *testing.T) {
	t.Run("found by doi default kind", func(t *testing.T) {
		citations := &mockCitations{}
		citations.On("LookupCitationData", mock.Anything, "10.1038/nature14539", domain.IdentifierKindDOI).
			Return(&domain.CitationRecord{PaperID: "abc", CitedByCount: domain.IntPtr(42)})
		srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Citations: citations})

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations?identifier=10.1038/nature14539", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var record domain.CitationRecord
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &record))
		assert.Equal(t, 42, *record.CitedByCount)
		citations.AssertExpectations(t)
	})

	t.Run("title kind", func(t *testing.T) {
		citations := &mockCitations{}
		citations.On("LookupCitationData", mock.Anything, "Deep learning", domain.IdentifierKindTitle).
			Return(&domain.CitationRecord{PaperID: "abc"})
		srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Citations: citations})

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations?identifier=Deep+learning&kind=title", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		citations := &mockCitations{}
		citations.On("LookupCitationData", mock.Anything, "10.1/missing", domain.IdentifierKindDOI).Return(nil)
		srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Citations: citations})

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations?identifier=10.1/missing", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Citations: &mockCitations{}})

		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations?identifier=x&kind=isbn", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr), "kind")
	})

	t.Run("unavailable without enricher", func(t *testing.T) {
		srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}})
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/citations?identifier=x", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestSearchRelated(t *testing.T) {
	related := &mockRelated{}
	related.On("Search", mock.Anything, "transformers", 25, []string{"title", "year"}).
		Return([]domain.Paper{{ID: "s2:1", Title: "Attention"}})
	srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Related: related})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/related?q=transformers&limit=25&fields=title,year", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp papersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "s2:1", resp.Papers[0].ID)
	related.AssertExpectations(t)
}

func TestSearchRelated_DefaultsAndValidation(t *testing.T) {
	related := &mockRelated{}
	related.On("Search", mock.Anything, "q", defaultRelatedLimit, []string(nil)).Return(nil)
	related.On("Search", mock.Anything, "q", maxRelatedLimit, []string(nil)).Return(nil)
	srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Related: related})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/related?q=q", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"papers":[],"total":0}`, rr.Body.String())

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/related?q=q&limit=1000", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/related", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/related?q=q&limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	related.AssertExpectations(t)
}

func TestRecommendations(t *testing.T) {
	related := &mockRelated{}
	related.On("Recommendations", mock.Anything, "649def34f8be52c8b66281af98ae884c09aef38b", 5).
		Return([]domain.Paper{{ID: "s2:a"}, {ID: "s2:b"}})
	srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}, Related: related})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/649def34f8be52c8b66281af98ae884c09aef38b/recommendations?limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp papersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	related.AssertExpectations(t)
}

func TestRecommendations_Unavailable(t *testing.T) {
	srv := newTestServer(Dependencies{Searcher: &fakeSearcher{}})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/abc/recommendations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
