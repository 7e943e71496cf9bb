package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kenaz-export/internal/exportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *exportservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Export runs.
	r.Post("/exports", h.StartExport)
	r.Get("/exports/latest", h.LatestRun)
	r.Get("/exports/latest/files", h.LatestFiles)
	r.Get("/exports/latest/unresolved", h.LatestUnresolved)

	// Single-note preview and link lookup.
	r.Get("/render/*", h.Render)
	r.Get("/resolve", h.Resolve)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
