package trust

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Info)

	return r
}
