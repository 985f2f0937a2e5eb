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
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/scopes", s.handleListScopes)

		// Gateway sidecar ingestion
		r.Post("/events/voice", s.handleVoiceEvent)

		r.Route("/scopes/{scopeID}", func(r chi.Router) {
			// Routine endpoints
			r.Route("/routines", func(r chi.Router) {
				r.Get("/", s.handleListRoutines)
				r.Post("/", s.handleCreateRoutine)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRoutine)
					r.Delete("/", s.handleDeleteRoutine)
					r.Post("/toggle", s.handleToggleRoutine)
				})
			})

			// Playback queue endpoints
			r.Route("/queue", func(r chi.Router) {
				r.Get("/", s.handleQueueInfo)
				r.Post("/skip", s.handleSkip)
				r.Post("/stop", s.handleStop)
			})

			// Sound catalogue endpoints
			r.Route("/sounds", func(r chi.Router) {
				r.Get("/", s.handleListSounds)
				r.Post("/sync", s.handleSyncSounds)
			})

			// Ignored channel endpoints
			r.Route("/channels/{channelID}", func(r chi.Router) {
				r.Post("/ignore", s.handleIgnoreChannel)
				r.Post("/unignore", s.handleUnignoreChannel)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleListScopes returns every scope with loaded routines.
func (s *Server) handleListScopes(w http.ResponseWriter, _ *http.Request) {
	scopes := s.routines.Scopes()
	writeJSON(w, http.StatusOK, map[string]any{"scopes": scopes, "count": len(scopes)})
}
