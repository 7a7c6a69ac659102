// Package api serves persisted detection results over a read-only JSON API.
// It never triggers detection: batch runs produce the data, this surface
// only browses it.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skyfence/gpswatch/internal/config"
	"github.com/skyfence/gpswatch/internal/storage/sqlite"
	"github.com/skyfence/gpswatch/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(results *sqlite.ResultStore, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(results, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/gap-sessions", r.handler.GetGapSessions)
		router.Get("/jump-events", r.handler.GetJumpEvents)
		router.Get("/windows", r.handler.GetWindows)
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
