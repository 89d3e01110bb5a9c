package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Secondary-source endpoint bounds.
const (
	defaultRelatedLimit = 10
	maxRelatedLimit     = 100
)

// lookupCitations handles GET /papers/citations?identifier=&kind=doi|title.
func (s *Server) lookupCitations(w http.ResponseWriter, r *http.Request) {
	if s.citations == nil {
		writeDomainError(w, domain.ErrServiceUnavailable)
		return
	}

	q := r.URL.Query()
	identifier := strings.TrimSpace(q.Get("identifier"))
	if identifier == "" {
		writeDomainError(w, domain.NewValidationError("identifier", "is required"))
		return
	}
	kind := domain.IdentifierKind(q.Get("kind"))
	if kind == "" {
		kind = domain.IdentifierKindDOI
	}
	if !kind.IsValid() {
		writeDomainError(w, domain.NewValidationError("kind", "must be one of [doi title]"))
		return
	}

	record := s.citations.LookupCitationData(r.Context(), identifier, kind)
	if record == nil {
		writeDomainError(w, domain.NewNotFoundError("citation data", identifier))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// searchRelated handles GET /papers/related?q=&limit=&fields=.
func (s *Server) searchRelated(w http.ResponseWriter, r *http.Request) {
	if s.related == nil {
		writeDomainError(w, domain.ErrServiceUnavailable)
		return
	}

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeDomainError(w, domain.NewValidationError("q", "is required"))
		return
	}
	if len(query) > maxQueryLength {
		writeDomainError(w, domain.NewValidationError("q", "is too long"))
		return
	}
	limit, ok := parseRelatedLimit(w, r)
	if !ok {
		return
	}

	papers := s.related.Search(r.Context(), query, limit, splitList(q.Get("fields")))
	writeJSON(w, http.StatusOK, newPapersResponse(papers))
}

// recommendations handles GET /papers/{paperID}/recommendations.
func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	if s.related == nil {
		writeDomainError(w, domain.ErrServiceUnavailable)
		return
	}

	paperID := strings.TrimSpace(chi.URLParam(r, "paperID"))
	if paperID == "" {
		writeDomainError(w, domain.NewValidationError("paper_id", "is required"))
		return
	}
	limit, ok := parseRelatedLimit(w, r)
	if !ok {
		return
	}

	papers := s.related.Recommendations(r.Context(), paperID, limit)
	writeJSON(w, http.StatusOK, newPapersResponse(papers))
}

// parseRelatedLimit reads the limit parameter, applying the default and the
// upper bound. It writes a 400 and returns false on malformed input.
func parseRelatedLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := optionalInt(r.URL.Query(), "limit", defaultRelatedLimit)
	if err != nil {
		writeDomainError(w, err)
		return 0, false
	}
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	if limit > maxRelatedLimit {
		limit = maxRelatedLimit
	}
	return limit, true
}
