// Package api exposes guest importance scoring over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/guestrank/internal/app"
	"github.com/okian/guestrank/internal/domain/importance"
	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	AnalyzeGuest(ctx context.Context, guestID, eventID string, force bool) (importance.ScoreResult, error)
	AnalyzeGuests(ctx context.Context, guests []model.Guest, force bool) (importance.BatchResult, error)
	AnalyzeOrganization(ctx context.Context, organizationID string, force bool) (importance.BatchResult, error)

	EnqueueRefresh(ctx context.Context, guestIDs []string, eventID string, force bool) (model.RefreshReceipt, error)
	EnqueueOrganizationRefresh(ctx context.Context, organizationID, eventID string, force bool) (model.RefreshReceipt, error)

	GetGuest(ctx context.Context, guestID string) (model.Guest, error)
	UpsertGuest(ctx context.Context, guest model.Guest) error
	UpsertEvent(ctx context.Context, event model.Event) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	importanceHandler *ImportanceHandler
	guestsHandler     *GuestsHandler
	logger            logger.Logger
	corsOrigins       []string
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORS allows browser calls from the given origins.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(stats),
		statsHandler:      NewStatsHandler(stats),
		importanceHandler: NewImportanceHandler(deps),
		guestsHandler:     NewGuestsHandler(deps),
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with every API route and middleware attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", MetricsHandler())
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/guests/{guestID}", func(r chi.Router) {
		r.Get("/", s.guestsHandler.HandleGetGuest)
		r.Put("/", s.guestsHandler.HandlePutGuest)
		r.Post("/importance", s.importanceHandler.HandleAnalyzeGuest)
	})
	r.Put("/events/{eventID}", s.guestsHandler.HandlePutEvent)

	r.Route("/importance", func(r chi.Router) {
		r.Post("/batch", s.importanceHandler.HandleBatch)
		r.Post("/refresh", s.importanceHandler.HandleRefresh)
	})
	return r
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Code: code})
}

// writeServiceError maps error kinds to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, importance.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, importance.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, importance.ErrScorer):
		return http.StatusBadGateway, "scorer_error"
	case errors.Is(err, importance.ErrStore):
		return http.StatusServiceUnavailable, "store_error"
	case errors.Is(err, importance.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "cancelled"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrQueueClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
