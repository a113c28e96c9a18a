package claim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/challenge"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/middleware"
	"github.com/funplanet/claim-api/internal/pkg/response"
	"github.com/funplanet/claim-api/internal/pkg/validator"
)

// WalletSource resolves the wallet a user currently has linked. Satisfied by
// wallet.Service.
type WalletSource interface {
	ActiveWallet(ctx context.Context, userID uuid.UUID) (string, error)
}

type Handler struct {
	svc     *Service
	wallets WalletSource
}

func NewHandler(svc *Service, wallets WalletSource) *Handler {
	return &Handler{svc: svc, wallets: wallets}
}

// Challenge issues a fresh signing challenge for the caller's wallet.
func (h *Handler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	ch, err := h.svc.IssueChallenge(r.Context(), req.WalletAddress, req.ClaimType)
	if err != nil {
		if errors.Is(err, challenge.ErrUnknownClaimPurpose) {
			response.BadRequest(w, "unknown claim type")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, ch)
}

// Submit runs a signed claim through the orchestrator.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	// The claimed wallet must be the one the user has linked; claiming to an
	// arbitrary address is not a thing even with a valid signature.
	if h.wallets != nil {
		linked, err := h.wallets.ActiveWallet(r.Context(), userID)
		if err != nil {
			response.Forbidden(w, "no wallet linked to this account")
			return
		}
		if !strings.EqualFold(linked, req.WalletAddress) {
			response.Forbidden(w, "wallet does not belong to this account")
			return
		}
	}

	result, err := h.svc.Submit(r.Context(), SubmitInput{
		UserID:    userID,
		Wallet:    req.WalletAddress,
		IP:        middleware.GetClientIP(r),
		AgeGroup:  middleware.GetAgeGroup(r.Context()),
		ClaimType: ledger.ClaimType(req.ClaimType),
		GameID:    req.GameID,
		Nonce:     req.Nonce,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		response.InternalError(w)
		return
	}

	if result.State == StateRejected {
		response.Rejected(w, statusForReason(result.Reason), result.Reason, messageForReason(result.Reason), result.CooldownSeconds)
		return
	}

	response.OK(w, result)
}

// Rewards lists the caller's claimable pending rewards.
func (h *Handler) Rewards(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		response.BadRequest(w, "wallet query parameter is required")
		return
	}

	rewards, total, err := h.svc.Claimable(r.Context(), wallet)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, rewardsResponse{Rewards: rewards, Total: total})
}

func statusForReason(reason string) int {
	switch reason {
	case ReasonClaimsPaused:
		return http.StatusServiceUnavailable
	case ReasonAlreadyClaimed:
		return http.StatusConflict
	case ReasonCooldownActive, ReasonDailyCapExceeded, "rate_limited":
		return http.StatusTooManyRequests
	case "blacklisted", "ip_limit", "account_too_new":
		return http.StatusForbidden
	case ReasonInvalidSignature:
		return http.StatusUnauthorized
	case ReasonChallengeExpired:
		return http.StatusGone
	case ReasonTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func messageForReason(reason string) string {
	switch reason {
	case ReasonClaimsPaused:
		return "claiming is temporarily paused"
	case ReasonAlreadyClaimed:
		return "this reward was already claimed"
	case ReasonDailyCapExceeded:
		return "daily claim limit reached, try again tomorrow"
	case ReasonCooldownActive:
		return "claim cooldown is still active"
	case ReasonChallengeExpired:
		return "challenge expired, request a new one"
	case ReasonInvalidSignature:
		return "signature verification failed"
	case ReasonNothingToClaim:
		return "no claimable rewards"
	case ReasonTransferFailed:
		return "claim failed, funds were not sent"
	case "blacklisted":
		return "account is not eligible to claim"
	case "ip_limit":
		return "too many accounts from this network"
	case "rate_limited":
		return "too many claim attempts, slow down"
	case "account_too_new":
		return "account is too new to claim rewards"
	default:
		return "claim rejected"
	}
}
