// Package chi is the HTTP transport for the trialscope API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pipelinex/trialscope/internal/domain"
	healthuc "github.com/pipelinex/trialscope/internal/usecase/health"
)

// Searcher runs a trial search. Satisfied by the pipeline service and
// by its caching decorator.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.Trial, error)
}

// Server exposes the trial search pipeline over HTTP.
type Server struct {
	search Searcher
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{
		search: search,
		health: health,
		logger: logger,
	}
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/v1/trials/search", s.SearchTrials)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// searchResponse is the success envelope; Studies is never null.
type searchResponse struct {
	Studies []domain.Trial `json:"studies"`
}

// errorResponse is the failure envelope. RawData carries the upstream
// diagnostic body when one exists.
type errorResponse struct {
	Error   string `json:"error"`
	RawData any    `json:"rawData,omitempty"`
}

// SearchTrials handles GET /api/v1/trials/search.
func (s *Server) SearchTrials(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, domain.ErrQueryRequired.Error(), nil)
		return
	}

	trials, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.handleSearchError(w, err)
		return
	}

	if trials == nil {
		trials = []domain.Trial{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Studies: trials})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// handleSearchError maps pipeline errors onto the failure envelope.
// Upstream status errors relay their diagnostic body; everything else
// gets a generic message so internals stay out of responses.
func (s *Server) handleSearchError(w http.ResponseWriter, err error) {
	s.logger.Error("trial search failed", zap.Error(err))

	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   ue.Error(),
			RawData: ue.RawData,
		})
		return
	}

	writeError(w, http.StatusInternalServerError, safeSearchMessage(err), nil)
}

// safeSearchMessage returns a sentinel error message for the client
// without exposing internals.
func safeSearchMessage(err error) string {
	sentinels := []error{
		domain.ErrUpstreamFormat,
		domain.ErrTooManyPages,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "failed to fetch clinical trial data"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, rawData any) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		RawData: rawData,
	})
}
