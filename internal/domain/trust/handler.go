package trust

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/middleware"
	"github.com/funplanet/claim-api/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Info returns the caller's derived trust picture.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	info, err := h.service.GetTrustInfo(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			response.NotFound(w, "account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, info)
}
