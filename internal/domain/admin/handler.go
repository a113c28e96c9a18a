package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/claim"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/middleware"
	"github.com/funplanet/claim-api/internal/pkg/response"
	"github.com/funplanet/claim-api/internal/pkg/validator"
)

// Handler handles admin console HTTP endpoints
type Handler struct {
	service *Service
	jwtSvc  *JWTService
}

// NewHandler creates admin handler
func NewHandler(service *Service, jwtSvc *JWTService) *Handler {
	return &Handler{service: service, jwtSvc: jwtSvc}
}

// --- Auth ---

// Login authenticates an admin and issues a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	admin, err := h.service.Login(r.Context(), req.Email, req.Password, middleware.GetClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminInactive):
			response.Forbidden(w, "account is inactive")
		default:
			response.Unauthorized(w, "invalid email or password")
		}
		return
	}

	token, err := h.jwtSvc.GenerateToken(admin)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, loginResponse{Token: token, Admin: admin})
}

// Me returns the authenticated admin
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.GetAdminByID(r.Context(), GetAdminID(r.Context()))
	if err != nil {
		response.Unauthorized(w, "admin not found")
		return
	}
	response.OK(w, admin)
}

// --- Admin management ---

func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, admins)
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	admin, err := h.service.CreateAdmin(r.Context(), GetAdminID(r.Context()), req.Email, req.Password, req.Name, Role(req.Role))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(w, "email already in use")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, admin)
}

func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid admin id")
		return
	}

	var req updateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	var role *Role
	if req.Role != nil {
		converted := Role(*req.Role)
		role = &converted
	}

	admin, err := h.service.UpdateAdmin(r.Context(), GetAdminID(r.Context()), targetID, req.Name, role, req.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminNotFound):
			response.NotFound(w, "admin not found")
		case errors.Is(err, ErrCannotManageRole):
			response.Forbidden(w, "cannot manage admin with equal or higher role")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, admin)
}

// --- Claims ---

func (h *Handler) PauseClaims(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.PauseClaims)
}

func (h *Handler) ResumeClaims(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.ResumeClaims)
}

func (h *Handler) togglePause(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID uuid.UUID, reason string) error) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := fn(r.Context(), GetAdminID(r.Context()), req.Reason); err != nil {
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

func (h *Handler) ApprovalQueue(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.ApprovalQueue(r.Context(), limit)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, records)
}

func (h *Handler) ApproveClaim(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid claim id")
		return
	}

	result, err := h.service.ApproveClaim(r.Context(), GetAdminID(r.Context()), recordID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			response.NotFound(w, "claim not found")
		case errors.Is(err, claim.ErrNotReviewable):
			response.Conflict(w, "claim is not awaiting review")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

func (h *Handler) RejectClaim(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid claim id")
		return
	}

	var req rejectClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.service.RejectClaim(r.Context(), GetAdminID(r.Context()), recordID, req.Reason); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			response.NotFound(w, "claim not found")
		case errors.Is(err, claim.ErrNotReviewable):
			response.Conflict(w, "claim is not awaiting review")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// --- User rewards ---

func (h *Handler) ResetUserRewards(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	var req resetRewardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	previous, err := h.service.ResetUserRewards(r.Context(), GetAdminID(r.Context()), userID, req.Reason, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmMismatch):
			response.BadRequest(w, "confirmation phrase does not match")
		case errors.Is(err, ledger.ErrNotFound):
			response.NotFound(w, "user not found")
		case errors.Is(err, ledger.ErrAuditWriteFailed):
			response.Error(w, http.StatusInternalServerError, "AUDIT_WRITE_FAILED", "reset aborted: audit log could not be written")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"previous_balances": previous})
}

// --- Settings ---

func (h *Handler) GetRewardSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.RewardSettings(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

func (h *Handler) UpdateRewardSettings(w http.ResponseWriter, r *http.Request) {
	var settings RewardSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.service.UpdateRewardSettings(r.Context(), GetAdminID(r.Context()), settings); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

func (h *Handler) GetSecuritySettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.SecuritySettings(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

func (h *Handler) UpdateSecuritySettings(w http.ResponseWriter, r *http.Request) {
	var settings SecuritySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.service.UpdateSecuritySettings(r.Context(), GetAdminID(r.Context()), settings); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

func (h *Handler) GetSystemSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.SystemSettings(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

func (h *Handler) UpdateSystemSettings(w http.ResponseWriter, r *http.Request) {
	var settings SystemSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.service.UpdateSystemSettings(r.Context(), GetAdminID(r.Context()), settings); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, settings)
}

// --- Blacklist ---

func (h *Handler) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListBlacklist(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, entries)
}

func (h *Handler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, err := h.service.AddToBlacklist(r.Context(), GetAdminID(r.Context()), req.Kind, req.Value, req.Reason)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, entry)
}

func (h *Handler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	if err := h.service.RemoveFromBlacklist(r.Context(), GetAdminID(r.Context()), req.Kind, req.Value, req.Reason); err != nil {
		if errors.Is(err, ErrNotBlacklisted) {
			response.NotFound(w, "entry not found in blacklist")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// --- Treasury ---

func (h *Handler) TreasuryBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.Treasury(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, "CHAIN_UNAVAILABLE", "could not read treasury balances")
		return
	}
	response.OK(w, balances)
}

// --- Audit logs ---

func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := AuditFilter{}

	if v := r.URL.Query().Get("admin_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.AdminID = &id
		}
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Action = &v
	}
	if v := r.URL.Query().Get("entity_type"); v != "" {
		filter.EntityType = &v
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	logs, total, err := h.service.ListAuditLogs(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"logs": logs, "total": total})
}
