package admin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/funplanet/claim-api/internal/domain/claim"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/pkg/chain"
	"github.com/funplanet/claim-api/internal/pkg/password"
)

// ResetConfirmPhrase must be typed verbatim to reset a user's rewards.
const ResetConfirmPhrase = "RESET REWARDS"

// Orchestrator drains the approval queue. Satisfied by claim.Service.
type Orchestrator interface {
	ApprovePayout(ctx context.Context, recordID uuid.UUID) (*claim.Result, error)
	RejectClaim(ctx context.Context, recordID uuid.UUID) error
}

// LedgerAdmin is the slice of the ledger the console drives. Satisfied by
// ledger.Repository.
type LedgerAdmin interface {
	ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*ledger.Balances, error)
	ListByStatus(ctx context.Context, status ledger.ClaimStatus, olderThan time.Duration, limit int) ([]*ledger.ClaimRecord, error)
}

// Appliers push settings changes into the running services so they take
// effect without a restart.
type Appliers struct {
	Reward   func(RewardSettings)
	Security func(SecuritySettings)
	System   func(SystemSettings)
}

// Defaults seed the settings documents on first read.
type Defaults struct {
	Reward   RewardSettings
	Security SecuritySettings
	System   SystemSettings
}

// Service handles admin console business logic
type Service struct {
	repo         Repository
	ledger       LedgerAdmin
	orchestrator Orchestrator
	chain        chain.Client
	appliers     Appliers
	defaults     Defaults
}

// NewService creates admin service
func NewService(repo Repository, ledgerAdmin LedgerAdmin, orchestrator Orchestrator, chainClient chain.Client, appliers Appliers, defaults Defaults) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledgerAdmin,
		orchestrator: orchestrator,
		chain:        chainClient,
		appliers:     appliers,
		defaults:     defaults,
	}
}

// SetOrchestrator injects the claim orchestrator after construction. The
// orchestrator needs this service as its pause flag source, so the two are
// wired in two steps.
func (s *Service) SetOrchestrator(orchestrator Orchestrator) {
	s.orchestrator = orchestrator
}

// --- Authentication ---

// Login authenticates admin and returns the account
func (s *Service) Login(ctx context.Context, email, pwd, ip string) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil || admin == nil {
		return nil, ErrInvalidCredentials
	}

	if !admin.IsActive {
		return nil, ErrAdminInactive
	}

	if !password.Verify(pwd, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	_ = s.repo.UpdateLastLogin(ctx, admin.ID, ip)

	return admin, nil
}

// GetAdminByID returns admin by ID
func (s *Service) GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByID(ctx, id)
	if err != nil || admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// --- Admin Management ---

// CreateAdmin creates a new admin user
func (s *Service) CreateAdmin(ctx context.Context, actorID uuid.UUID, email, pwd, name string, role Role) (*AdminUser, error) {
	existing, _ := s.repo.GetAdminByEmail(ctx, email)
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(pwd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin := &AdminUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logAction(ctx, actorID, "admin.create", "admin", admin.ID, "", nil, admin)

	return admin, nil
}

// UpdateAdmin updates an admin account. Actors cannot manage peers or
// superiors.
func (s *Service) UpdateAdmin(ctx context.Context, actorID, targetID uuid.UUID, name *string, role *Role, isActive *bool) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByID(ctx, targetID)
	if err != nil || admin == nil {
		return nil, ErrAdminNotFound
	}

	actor, _ := s.repo.GetAdminByID(ctx, actorID)
	if actor != nil && !CanManage(actor.Role, admin.Role) {
		return nil, ErrCannotManageRole
	}

	oldValue := *admin

	if name != nil {
		admin.Name = *name
	}
	if role != nil {
		admin.Role = *role
	}
	if isActive != nil {
		admin.IsActive = *isActive
	}

	if err := s.repo.UpdateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logAction(ctx, actorID, "admin.update", "admin", admin.ID, "", oldValue, admin)

	return admin, nil
}

// ListAdmins returns all admins
func (s *Service) ListAdmins(ctx context.Context) ([]*AdminUser, error) {
	return s.repo.ListAdmins(ctx)
}

// --- Settings ---

// RewardSettings loads the payout settings, migrating old versions forward.
func (s *Service) RewardSettings(ctx context.Context) (RewardSettings, error) {
	row, err := s.repo.GetSetting(ctx, SettingReward)
	if errors.Is(err, ErrSettingNotFound) {
		return s.defaults.Reward, nil
	}
	if err != nil {
		return RewardSettings{}, err
	}
	settings, migrated, err := migrateRewardSettings(row.Value, row.Version)
	if err != nil {
		return RewardSettings{}, err
	}
	if migrated {
		log.Info().Int("from_version", row.Version).Msg("reward settings migrated on read")
	}
	return settings, nil
}

// UpdateRewardSettings persists and applies new payout settings.
func (s *Service) UpdateRewardSettings(ctx context.Context, adminID uuid.UUID, settings RewardSettings) error {
	old, err := s.RewardSettings(ctx)
	if err != nil {
		return err
	}

	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSetting(ctx, SettingReward, value, rewardSettingsVersion, adminID); err != nil {
		return err
	}

	s.logAction(ctx, adminID, "settings.update", "setting", uuid.Nil, "", old, settings)
	if s.appliers.Reward != nil {
		s.appliers.Reward(settings)
	}
	return nil
}

// SecuritySettings loads the trust evaluator settings.
func (s *Service) SecuritySettings(ctx context.Context) (SecuritySettings, error) {
	row, err := s.repo.GetSetting(ctx, SettingSecurity)
	if errors.Is(err, ErrSettingNotFound) {
		return s.defaults.Security, nil
	}
	if err != nil {
		return SecuritySettings{}, err
	}
	settings, _, err := migrateSecuritySettings(row.Value, row.Version)
	return settings, err
}

// UpdateSecuritySettings persists and applies new trust evaluator settings.
func (s *Service) UpdateSecuritySettings(ctx context.Context, adminID uuid.UUID, settings SecuritySettings) error {
	old, err := s.SecuritySettings(ctx)
	if err != nil {
		return err
	}

	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSetting(ctx, SettingSecurity, value, securitySettingsVersion, adminID); err != nil {
		return err
	}

	s.logAction(ctx, adminID, "settings.update", "setting", uuid.Nil, "", old, settings)
	if s.appliers.Security != nil {
		s.appliers.Security(settings)
	}
	return nil
}

// SystemSettings loads the kill switch and cap settings.
func (s *Service) SystemSettings(ctx context.Context) (SystemSettings, error) {
	row, err := s.repo.GetSetting(ctx, SettingSystem)
	if errors.Is(err, ErrSettingNotFound) {
		return s.defaults.System, nil
	}
	if err != nil {
		return SystemSettings{}, err
	}
	settings, migrated, err := migrateSystemSettings(row.Value, row.Version)
	if err != nil {
		return SystemSettings{}, err
	}
	if migrated {
		log.Info().Int("from_version", row.Version).Msg("system settings migrated on read")
	}
	return settings, nil
}

// UpdateSystemSettings persists and applies new system settings.
func (s *Service) UpdateSystemSettings(ctx context.Context, adminID uuid.UUID, settings SystemSettings) error {
	old, err := s.SystemSettings(ctx)
	if err != nil {
		return err
	}

	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSetting(ctx, SettingSystem, value, systemSettingsVersion, adminID); err != nil {
		return err
	}

	s.logAction(ctx, adminID, "settings.update", "setting", uuid.Nil, "", old, settings)
	if s.appliers.System != nil {
		s.appliers.System(settings)
	}
	return nil
}

// ClaimsPaused reads the kill switch fresh from storage, so a pause on one
// instance is honored by all.
func (s *Service) ClaimsPaused(ctx context.Context) (bool, error) {
	settings, err := s.SystemSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings.ClaimsPaused, nil
}

// PauseClaims flips the global kill switch on.
func (s *Service) PauseClaims(ctx context.Context, adminID uuid.UUID, reason string) error {
	return s.setPaused(ctx, adminID, true, reason)
}

// ResumeClaims flips the global kill switch off.
func (s *Service) ResumeClaims(ctx context.Context, adminID uuid.UUID, reason string) error {
	return s.setPaused(ctx, adminID, false, reason)
}

func (s *Service) setPaused(ctx context.Context, adminID uuid.UUID, paused bool, reason string) error {
	settings, err := s.SystemSettings(ctx)
	if err != nil {
		return err
	}
	old := settings
	settings.ClaimsPaused = paused

	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSetting(ctx, SettingSystem, value, systemSettingsVersion, adminID); err != nil {
		return err
	}

	action := "claims.pause"
	if !paused {
		action = "claims.resume"
	}
	s.logAction(ctx, adminID, action, "setting", uuid.Nil, reason, old, settings)
	if s.appliers.System != nil {
		s.appliers.System(settings)
	}

	log.Warn().
		Bool("paused", paused).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Msg("claim kill switch toggled")
	return nil
}

// --- User rewards ---

// ResetUserRewards zeroes a user's reward balances. The confirmation phrase
// must be typed verbatim; the audit snapshot is written by the ledger inside
// the reset transaction.
func (s *Service) ResetUserRewards(ctx context.Context, adminID, userID uuid.UUID, reason, confirm string) (*ledger.Balances, error) {
	if confirm != ResetConfirmPhrase {
		return nil, ErrConfirmMismatch
	}
	return s.ledger.ResetAll(ctx, userID, adminID, reason)
}

// --- Blacklist ---

// AddToBlacklist blocks a wallet or IP from claiming.
func (s *Service) AddToBlacklist(ctx context.Context, adminID uuid.UUID, kind, value, reason string) (*BlacklistEntry, error) {
	if kind == "wallet" {
		value = strings.ToLower(value)
	}
	entry := &BlacklistEntry{
		ID:        uuid.New(),
		Kind:      kind,
		Value:     value,
		Reason:    reason,
		CreatedBy: uuid.NullUUID{UUID: adminID, Valid: true},
		CreatedAt: time.Now(),
	}
	if err := s.repo.AddBlacklist(ctx, entry); err != nil {
		return nil, err
	}

	s.logAction(ctx, adminID, "blacklist.add", "blacklist", entry.ID, reason, nil, entry)
	return entry, nil
}

// RemoveFromBlacklist unblocks a wallet or IP.
func (s *Service) RemoveFromBlacklist(ctx context.Context, adminID uuid.UUID, kind, value, reason string) error {
	if kind == "wallet" {
		value = strings.ToLower(value)
	}
	if err := s.repo.RemoveBlacklist(ctx, kind, value); err != nil {
		return err
	}

	s.logAction(ctx, adminID, "blacklist.remove", "blacklist", uuid.Nil, reason,
		map[string]string{"kind": kind, "value": value}, nil)
	return nil
}

// ListBlacklist returns all blacklist entries
func (s *Service) ListBlacklist(ctx context.Context) ([]*BlacklistEntry, error) {
	return s.repo.ListBlacklist(ctx)
}

// --- Approval queue ---

// ApprovalQueue lists claims parked for manual review, oldest first.
func (s *Service) ApprovalQueue(ctx context.Context, limit int) ([]*ledger.ClaimRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ledger.ListByStatus(ctx, ledger.StatusPendingReview, 0, limit)
}

// ApproveClaim resumes the payout path for a parked claim.
func (s *Service) ApproveClaim(ctx context.Context, adminID, recordID uuid.UUID) (*claim.Result, error) {
	result, err := s.orchestrator.ApprovePayout(ctx, recordID)
	if err != nil {
		return nil, err
	}

	s.logAction(ctx, adminID, "claim.approve", "claim", recordID, "", nil, result)
	return result, nil
}

// RejectClaim closes a parked claim and releases its reservation.
func (s *Service) RejectClaim(ctx context.Context, adminID, recordID uuid.UUID, reason string) error {
	if err := s.orchestrator.RejectClaim(ctx, recordID); err != nil {
		return err
	}

	s.logAction(ctx, adminID, "claim.reject", "claim", recordID, reason, nil, nil)
	return nil
}

// --- Treasury ---

// Treasury returns the hot reward wallet's on-chain balances.
func (s *Service) Treasury(ctx context.Context) (*chain.Balances, error) {
	return s.chain.Balances(ctx)
}

// --- Audit Logs ---

// ListAuditLogs returns audit logs
func (s *Service) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error) {
	return s.repo.ListAuditLogs(ctx, filter)
}

// logAction creates an audit log entry
func (s *Service) logAction(ctx context.Context, adminID uuid.UUID, action, entityType string, entityID uuid.UUID, reason string, oldValue, newValue interface{}) {
	admin, _ := s.repo.GetAdminByID(ctx, adminID)
	email := ""
	if admin != nil {
		email = admin.Email
	}

	oldJSON, _ := json.Marshal(oldValue)
	newJSON, _ := json.Marshal(newValue)

	entry := &AuditLog{
		ID:         uuid.New(),
		AdminID:    uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil},
		AdminEmail: email,
		Action:     action,
		EntityType: entityType,
		EntityID:   uuid.NullUUID{UUID: entityID, Valid: entityID != uuid.Nil},
		OldValue:   oldJSON,
		NewValue:   newJSON,
		CreatedAt:  time.Now(),
	}
	if reason != "" {
		entry.Reason.String = reason
		entry.Reason.Valid = true
	}

	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		// Log error but don't fail the operation
		log.Error().Err(err).Msg("Failed to create audit log")
	}
}
