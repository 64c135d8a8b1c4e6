// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
)

const (
	maxBodyBytes = 1 << 20
	corsMaxAge   = 300
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Recommend evaluates answers for sportID. An empty result is not an error.
	Recommend(ctx context.Context, answers model.Answers, sportID string) ([]model.Recommendation, error)

	// FormData returns the sports and questions the questionnaire renders.
	FormData(ctx context.Context, sportID string) (model.FormData, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	recommendationsHandler *RecommendationsHandler
	formDataHandler        *FormDataHandler

	allowedOrigins []string
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets the logger handlers report failures to.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recommendationsHandler = NewRecommendationsHandler(deps, s.logger)
	s.formDataHandler = NewFormDataHandler(deps, s.logger)
	return s
}

// Routes builds the router with the shared middleware and all API routes.
func (s *Server) Routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     s.allowedOrigins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:             corsMaxAge,
		OptionsPassthrough: true,
	}))
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Options("/*", handlePreflight)
	r.Get("/healthz", s.instrument("healthz", s.healthHandler.HandleHealth))
	r.Get("/stats", s.instrument("stats", s.statsHandler.HandleStats))
	r.Post("/recommendations", s.instrument("recommendations", s.recommendationsHandler.HandlePostRecommendations))
	r.Get("/form-data", s.instrument("form_data", s.formDataHandler.HandleGetFormData))

	s.logger.Debug(ctx, "api routes registered", logger.Any("origins", s.allowedOrigins))
}

// handlePreflight answers OPTIONS after the CORS middleware set its headers.
func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
