package claim

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns claim router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// All routes require authentication
	r.Use(authMiddleware)

	r.Post("/challenge", h.Challenge)
	r.Post("/", h.Submit)
	r.Get("/rewards", h.Rewards)

	return r
}
