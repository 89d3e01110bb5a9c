package httpserver

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/repository"
)

// searchesResponse is a page of completed searches.
type searchesResponse struct {
	Searches []*domain.SearchRecord `json:"searches"`
	Total    int64                  `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
}

// listSearches handles GET /searches?q=&completed_after=&completed_before=&limit=&offset=.
func (s *Server) listSearches(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeDomainError(w, domain.ErrServiceUnavailable)
		return
	}

	filter, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := filter.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	records, total, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list searches")
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []*domain.SearchRecord{}
	}

	writeJSON(w, http.StatusOK, searchesResponse{
		Searches: records,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// getSearch handles GET /searches/{searchID}.
func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeDomainError(w, domain.ErrServiceUnavailable)
		return
	}

	searchID := strings.TrimSpace(chi.URLParam(r, "searchID"))
	record, err := s.history.Get(r.Context(), searchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func parseHistoryFilter(q url.Values) (repository.SearchHistoryFilter, error) {
	filter := repository.SearchHistoryFilter{Query: strings.TrimSpace(q.Get("q"))}
	if len(filter.Query) > maxQueryLength {
		return filter, domain.NewValidationError("q", "is too long")
	}

	var err error
	if filter.Limit, err = optionalInt(q, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = optionalInt(q, "offset", 0); err != nil {
		return filter, err
	}
	if filter.CompletedAfter, err = optionalTime(q, "completed_after"); err != nil {
		return filter, err
	}
	if filter.CompletedBefore, err = optionalTime(q, "completed_before"); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalTime(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}
