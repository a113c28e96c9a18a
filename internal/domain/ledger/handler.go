package ledger

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

type recordRewardRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Wallet string `json:"wallet" validate:"required,eth_address"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Source string `json:"source" validate:"required"`
}

// Balances returns the caller's reward balances.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balances, err := h.service.GetBalances(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "account not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, balances)
}

// RecordReward appends a pending reward. Only trusted platform services carry
// the service role; players never hit this endpoint.
func (h *Handler) RecordReward(w http.ResponseWriter, r *http.Request) {
	if middleware.GetRole(r.Context()) != "service" {
		response.Forbidden(w, "service credentials required")
		return
	}

	var req recordRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(w, "invalid user_id")
		return
	}

	reward, err := h.service.RecordPending(r.Context(), userID, req.Wallet, req.Amount, RewardSource(req.Source))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSource):
			response.BadRequest(w, "unknown reward source")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be positive")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, reward)
}
