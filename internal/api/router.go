package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/stats", h.Stats)

	// Mashes CRUD.
	r.Get("/mashes", h.ListMashes)
	r.Post("/mashes", h.CreateMash)
	r.Get("/mashes/{id}", h.GetMash)
	r.Patch("/mashes/{id}", h.UpdateMash)
	r.Delete("/mashes/{id}", h.DeleteMash)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/nodes/{id}", h.NodeDetail)
	r.Post("/edges", h.AddEdge)
	r.Patch("/edges/{id}", h.UpdateEdge)
	r.Delete("/edges/{id}", h.DeleteEdge)

	// Search.
	r.Get("/search", h.SearchKeyword)
	r.Get("/search/semantic", h.SearchSemantic)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
