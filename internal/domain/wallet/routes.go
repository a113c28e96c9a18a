package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Active)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)

	return r
}
