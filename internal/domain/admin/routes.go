package admin

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns admin router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Auth routes (no auth required)
	r.Post("/auth/login", h.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.jwtSvc, h.service))

		// Current admin
		r.Get("/auth/me", h.Me)

		// Admin management (super_admin only)
		r.Route("/admins", func(r chi.Router) {
			r.Use(RequirePermission(PermManageAdmins))
			r.Get("/", h.ListAdmins)
			r.Post("/", h.CreateAdmin)
			r.Patch("/{id}", h.UpdateAdmin)
		})

		// Claim operations
		r.Route("/claims", func(r chi.Router) {
			r.With(RequirePermission(PermPauseClaims)).Post("/pause", h.PauseClaims)
			r.With(RequirePermission(PermPauseClaims)).Post("/resume", h.ResumeClaims)

			r.With(RequirePermission(PermViewClaims)).Get("/queue", h.ApprovalQueue)
			r.With(RequirePermission(PermApproveClaims)).Post("/{id}/approve", h.ApproveClaim)
			r.With(RequirePermission(PermApproveClaims)).Post("/{id}/reject", h.RejectClaim)
		})

		// User reward state
		r.Route("/users", func(r chi.Router) {
			r.Use(RequirePermission(PermResetRewards))
			r.Post("/{id}/reset-rewards", h.ResetUserRewards)
		})

		// Versioned settings documents
		r.Route("/settings", func(r chi.Router) {
			r.Use(RequirePermission(PermManageSettings))
			r.Get("/rewards", h.GetRewardSettings)
			r.Put("/rewards", h.UpdateRewardSettings)
			r.Get("/security", h.GetSecuritySettings)
			r.Put("/security", h.UpdateSecuritySettings)
			r.Get("/system", h.GetSystemSettings)
			r.Put("/system", h.UpdateSystemSettings)
		})

		// Blacklist
		r.Route("/blacklist", func(r chi.Router) {
			r.Use(RequirePermission(PermManageBlacklist))
			r.Get("/", h.ListBlacklist)
			r.Post("/", h.AddToBlacklist)
			r.Delete("/", h.RemoveFromBlacklist)
		})

		// Treasury
		r.Route("/treasury", func(r chi.Router) {
			r.Use(RequirePermission(PermViewTreasury))
			r.Get("/balance", h.TreasuryBalance)
		})

		// Audit logs
		r.Route("/audit", func(r chi.Router) {
			r.Use(RequirePermission(PermViewAuditLogs))
			r.Get("/logs", h.AuditLogs)
		})
	})

	return r
}
