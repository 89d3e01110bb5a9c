package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/paper-discovery-service/internal/observability"
)

// SearchIDHeader returns the aggregated search ID to the caller.
const SearchIDHeader = "X-Search-ID"

// searchPapersGet handles GET /papers/search.
func (s *Server) searchPapersGet(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.runSearch(w, r, req)
}

// searchPapersPost handles POST /papers/search.
func (s *Server) searchPapersPost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	s.runSearch(w, r, req)
}

// runSearch validates req and executes the aggregated search. The pipeline
// itself never fails, so every valid request gets a 200.
func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	if err := s.validateStruct(req); err != nil {
		writeDomainError(w, err)
		return
	}

	filters := req.Filters.toDomain()
	if err := filters.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	searchID := uuid.NewString()
	ctx := observability.WithSearchID(r.Context(), searchID)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := s.searcher.SearchPapers(ctx, req.Query, filters, s.clampLimit(req.Limit))

	w.Header().Set(SearchIDHeader, searchID)
	writeJSON(w, http.StatusOK, result)
}
