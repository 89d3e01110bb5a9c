package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// papersResponse wraps secondary-source paper lists.
type papersResponse struct {
	Papers []domain.Paper `json:"papers"`
	Total  int            `json:"total"`
}

func newPapersResponse(papers []domain.Paper) papersResponse {
	if papers == nil {
		papers = []domain.Paper{}
	}
	return papersResponse{Papers: papers, Total: len(papers)}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrExternalAPI):
		writeError(w, http.StatusBadGateway, "upstream source failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
