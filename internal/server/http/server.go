// Package httpserver provides the HTTP REST API for the paper discovery service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/database"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/repository"
)

// Searcher runs aggregated paper searches.
type Searcher interface {
	SearchPapers(ctx context.Context, query string, filters domain.SearchFilters, limit int) *domain.EnhancedSearchResult
}

// HealthChecker reports backing store health for the readiness probe.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// SearchHistory serves lookups of completed searches.
type SearchHistory interface {
	Get(ctx context.Context, searchID string) (*domain.SearchRecord, error)
	List(ctx context.Context, filter repository.SearchHistoryFilter) ([]*domain.SearchRecord, int64, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	citations  papersources.CitationEnricher
	related    papersources.RelatedPaperSource
	health     HealthChecker
	history    SearchHistory
	validate   *validator.Validate
	maxLimit   int
	timeout    time.Duration
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// SearchTimeout bounds a single aggregated search. Zero means no bound
	// beyond the request context.
	SearchTimeout time.Duration
	// MaxLimit caps caller-supplied result limits.
	MaxLimit int
}

// Dependencies groups the collaborators served by the API. Citations,
// Related, Health and History may be nil; the matching endpoints then report
// the feature as unavailable (or the probe as trivially ready).
type Dependencies struct {
	Searcher  Searcher
	Citations papersources.CitationEnricher
	Related   papersources.RelatedPaperSource
	Health    HealthChecker
	History   SearchHistory
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies, logger zerolog.Logger) *Server {
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = defaultMaxLimit
	}

	s := &Server{
		searcher:  deps.Searcher,
		citations: deps.Citations,
		related:   deps.Related,
		health:    deps.Health,
		history:   deps.History,
		validate:  newValidator(),
		maxLimit:  maxLimit,
		timeout:   cfg.SearchTimeout,
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1/papers", func(r chi.Router) {
		r.Get("/search", s.searchPapersGet)
		r.Post("/search", s.searchPapersPost)
		r.Get("/citations", s.lookupCitations)
		r.Get("/related", s.searchRelated)
		r.Get("/{paperID}/recommendations", s.recommendations)
	})

	r.Route("/api/v1/searches", func(r chi.Router) {
		r.Get("/", s.listSearches)
		r.Get("/{searchID}", s.getSearch)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status including cache database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}
