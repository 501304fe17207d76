package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/typedmdx/internal/catalog"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(cat *catalog.Catalog, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(cat)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/collections", h.ListCollections)
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Get("/", h.GetCollection)
		r.Get("/entries", h.ListEntries)
		r.Get("/entries/{slug}", h.GetEntry)
		r.Get("/report", h.Report)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
