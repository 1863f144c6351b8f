package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Unknown API paths get a JSON error, not the static fallback.
		r.NotFound(s.handleNotFound)

		r.Get("/health", s.handleHealth)

		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handlePostConfig)

		r.Get("/history", s.handleHistory)

		r.Post("/command", s.handleCommand)

		r.Get("/ws", s.handleWebSocket)
	})

	// Dashboard static assets
	if s.cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.cfg.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}
