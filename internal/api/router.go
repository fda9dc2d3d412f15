package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/marginalia/internal/annotationservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *annotationservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)

	// Annotations.
	r.Get("/annotations", h.VaultAnnotations)
	r.Get("/annotations/*", h.GetAnnotations)
	r.Post("/annotations/*", h.AddAnnotation)
	r.Patch("/annotations/*", h.EditAnnotation)
	r.Delete("/annotations/*", h.DeleteAnnotation)
	r.Get("/table/*", h.Table)

	// Export.
	r.Get("/export/*", h.Export)
	r.Get("/backends", h.Backends)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
