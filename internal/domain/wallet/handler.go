package wallet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/middleware"
	"github.com/funplanet/claim-api/internal/pkg/response"
	"github.com/funplanet/claim-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type connectRequest struct {
	Address string `json:"address" validate:"required,eth_address"`
}

type activeResponse struct {
	Address string   `json:"address"`
	History []*Event `json:"history"`
}

// Active returns the current link plus full history. A user with no active
// wallet still gets their history back.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	address, err := h.service.ActiveWallet(r.Context(), userID)
	if err != nil && !errors.Is(err, ErrNoWallet) {
		response.InternalError(w)
		return
	}

	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, activeResponse{Address: address, History: history})
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	event, err := h.service.Connect(r.Context(), userID, req.Address)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidWallet):
			response.BadRequest(w, "invalid wallet address")
		case errors.Is(err, ErrWalletTaken):
			response.Conflict(w, "wallet is linked to another account")
		case errors.Is(err, ErrSameWallet):
			response.Conflict(w, "wallet is already linked to this account")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, event)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.service.Disconnect(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNoWallet) {
			response.NotFound(w, "no wallet linked to this account")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "wallet disconnected"})
}
