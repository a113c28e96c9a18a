package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/admin"
	"github.com/funplanet/claim-api/internal/domain/claim"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/pkg/chain"
	"github.com/funplanet/claim-api/internal/pkg/password"
)

type fakeRepo struct {
	mu        sync.Mutex
	admins    map[uuid.UUID]*admin.AdminUser
	settings  map[string]*admin.SettingRow
	blacklist map[string]*admin.BlacklistEntry
	audits    []*admin.AuditLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		admins:    make(map[uuid.UUID]*admin.AdminUser),
		settings:  make(map[string]*admin.SettingRow),
		blacklist: make(map[string]*admin.BlacklistEntry),
	}
}

func (f *fakeRepo) CreateAdmin(ctx context.Context, a *admin.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[a.ID] = a
	return nil
}

func (f *fakeRepo) GetAdminByID(ctx context.Context, id uuid.UUID) (*admin.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[id], nil
}

func (f *fakeRepo) GetAdminByEmail(ctx context.Context, email string) (*admin.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListAdmins(ctx context.Context) ([]*admin.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*admin.AdminUser
	for _, a := range f.admins {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) UpdateAdmin(ctx context.Context, a *admin.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[a.ID] = a
	return nil
}

func (f *fakeRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error {
	return nil
}

func (f *fakeRepo) CreateAuditLog(ctx context.Context, entry *admin.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeRepo) ListAuditLogs(ctx context.Context, filter admin.AuditFilter) ([]*admin.AuditLog, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audits, len(f.audits), nil
}

func (f *fakeRepo) GetSetting(ctx context.Context, key string) (*admin.SettingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.settings[key]
	if !ok {
		return nil, admin.ErrSettingNotFound
	}
	return row, nil
}

func (f *fakeRepo) UpsertSetting(ctx context.Context, key string, value json.RawMessage, version int, adminID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = &admin.SettingRow{Key: key, Value: value, Version: version, UpdatedAt: time.Now()}
	return nil
}

func (f *fakeRepo) AddBlacklist(ctx context.Context, entry *admin.BlacklistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[entry.Kind+"|"+entry.Value] = entry
	return nil
}

func (f *fakeRepo) RemoveBlacklist(ctx context.Context, kind, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := kind + "|" + value
	if _, ok := f.blacklist[key]; !ok {
		return admin.ErrNotBlacklisted
	}
	delete(f.blacklist, key)
	return nil
}

func (f *fakeRepo) ListBlacklist(ctx context.Context) ([]*admin.BlacklistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*admin.BlacklistEntry
	for _, entry := range f.blacklist {
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeRepo) lastAudit() *admin.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.audits) == 0 {
		return nil
	}
	return f.audits[len(f.audits)-1]
}

type fakeLedgerAdmin struct {
	resetCalls int
	previous   *ledger.Balances
}

func (f *fakeLedgerAdmin) ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*ledger.Balances, error) {
	f.resetCalls++
	return f.previous, nil
}

func (f *fakeLedgerAdmin) ListByStatus(ctx context.Context, status ledger.ClaimStatus, olderThan time.Duration, limit int) ([]*ledger.ClaimRecord, error) {
	return nil, nil
}

type fakeOrchestrator struct{}

func (f *fakeOrchestrator) ApprovePayout(ctx context.Context, recordID uuid.UUID) (*claim.Result, error) {
	return &claim.Result{State: claim.StateConfirmed, TxHash: "0xabc"}, nil
}

func (f *fakeOrchestrator) RejectClaim(ctx context.Context, recordID uuid.UUID) error {
	return nil
}

func newTestService(t *testing.T) (*admin.Service, *fakeRepo, *fakeLedgerAdmin) {
	t.Helper()
	repo := newFakeRepo()
	ledgerAdmin := &fakeLedgerAdmin{previous: &ledger.Balances{CamlyBalance: 5000}}
	svc := admin.NewService(repo, ledgerAdmin, &fakeOrchestrator{}, chain.NewNullClient(), admin.Appliers{}, admin.Defaults{
		Reward: admin.RewardSettings{WelcomeAmount: 10000, ApprovalThreshold: 50000},
		System: admin.SystemSettings{MaxDailyPayout: 1000000, DefaultDailyCap: 30000},
	})
	return svc, repo, ledgerAdmin
}

func seedAdmin(t *testing.T, repo *fakeRepo, role admin.Role, active bool) *admin.AdminUser {
	t.Helper()
	hash, err := password.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := &admin.AdminUser{
		ID:           uuid.New(),
		Email:        string(role) + "@funplanet.io",
		PasswordHash: hash,
		Role:         role,
		Name:         "Test Admin",
		IsActive:     active,
		CreatedAt:    time.Now(),
	}
	repo.admins[a.ID] = a
	return a
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	a := seedAdmin(t, repo, admin.RoleAdmin, true)

	got, err := svc.Login(context.Background(), a.Email, "correct-horse-battery", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != a.ID {
		t.Fatal("wrong admin returned")
	}

	if _, err := svc.Login(context.Background(), a.Email, "wrong-password", "10.0.0.1"); !errors.Is(err, admin.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	inactive := seedAdmin(t, repo, admin.RoleSupport, false)
	if _, err := svc.Login(context.Background(), inactive.Email, "correct-horse-battery", "10.0.0.1"); !errors.Is(err, admin.ErrAdminInactive) {
		t.Fatalf("expected ErrAdminInactive, got %v", err)
	}
}

func TestRewardSettingsMigratesOldVersion(t *testing.T) {
	svc, repo, _ := newTestService(t)

	// A version 1 document, written before the approval queue existed
	repo.settings[admin.SettingReward] = &admin.SettingRow{
		Key:     admin.SettingReward,
		Value:   json.RawMessage(`{"welcome_amount":20000,"playgame_amount":2000,"uploadgame_amount":8000,"daily_checkin_amount":1000,"cooldown_hours":24}`),
		Version: 1,
	}

	settings, err := svc.RewardSettings(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings.WelcomeAmount != 20000 {
		t.Fatalf("stored values lost in migration: %+v", settings)
	}
	if settings.ApprovalThreshold != 50000 {
		t.Fatalf("migration did not backfill approval threshold: %+v", settings)
	}
}

func TestSystemSettingsMigratesOldVersion(t *testing.T) {
	svc, repo, _ := newTestService(t)

	repo.settings[admin.SettingSystem] = &admin.SettingRow{
		Key:     admin.SettingSystem,
		Value:   json.RawMessage(`{"claims_paused":false,"max_daily_payout":500000}`),
		Version: 1,
	}

	settings, err := svc.SystemSettings(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings.MaxDailyPayout != 500000 {
		t.Fatalf("stored values lost in migration: %+v", settings)
	}
	if len(settings.AgeGroupDailyCaps) == 0 || settings.DefaultDailyCap == 0 {
		t.Fatalf("migration did not backfill age caps: %+v", settings)
	}
}

func TestResetUserRewardsRequiresConfirmPhrase(t *testing.T) {
	svc, repo, ledgerAdmin := newTestService(t)
	actor := seedAdmin(t, repo, admin.RoleSuperAdmin, true)
	userID := uuid.New()

	_, err := svc.ResetUserRewards(context.Background(), actor.ID, userID, "fraud cleanup", "reset rewards")
	if !errors.Is(err, admin.ErrConfirmMismatch) {
		t.Fatalf("expected ErrConfirmMismatch for wrong phrase, got %v", err)
	}
	if ledgerAdmin.resetCalls != 0 {
		t.Fatal("ledger reset executed without a valid confirmation")
	}

	previous, err := svc.ResetUserRewards(context.Background(), actor.ID, userID, "fraud cleanup", admin.ResetConfirmPhrase)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if previous.CamlyBalance != 5000 {
		t.Fatalf("previous balances not returned: %+v", previous)
	}
	if ledgerAdmin.resetCalls != 1 {
		t.Fatalf("expected 1 reset call, got %d", ledgerAdmin.resetCalls)
	}
}

func TestPauseAndResumeClaims(t *testing.T) {
	svc, repo, _ := newTestService(t)
	actor := seedAdmin(t, repo, admin.RoleAdmin, true)

	var applied []bool
	var mu sync.Mutex
	svcWithApplier := admin.NewService(repo, &fakeLedgerAdmin{}, &fakeOrchestrator{}, chain.NewNullClient(), admin.Appliers{
		System: func(s admin.SystemSettings) {
			mu.Lock()
			applied = append(applied, s.ClaimsPaused)
			mu.Unlock()
		},
	}, admin.Defaults{})
	_ = svc

	if err := svcWithApplier.PauseClaims(context.Background(), actor.ID, "treasury audit"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused, err := svcWithApplier.ClaimsPaused(context.Background())
	if err != nil || !paused {
		t.Fatalf("expected paused, got %v %v", paused, err)
	}
	if audit := repo.lastAudit(); audit == nil || audit.Action != "claims.pause" {
		t.Fatalf("pause not audited: %+v", audit)
	}

	if err := svcWithApplier.ResumeClaims(context.Background(), actor.ID, "audit complete"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	paused, _ = svcWithApplier.ClaimsPaused(context.Background())
	if paused {
		t.Fatal("expected resumed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 2 || !applied[0] || applied[1] {
		t.Fatalf("settings applier saw wrong sequence: %v", applied)
	}
}

func TestUpdateAdminRespectsHierarchy(t *testing.T) {
	svc, repo, _ := newTestService(t)
	actor := seedAdmin(t, repo, admin.RoleAdmin, true)
	target := seedAdmin(t, repo, admin.RoleSuperAdmin, true)

	name := "Renamed"
	_, err := svc.UpdateAdmin(context.Background(), actor.ID, target.ID, &name, nil, nil)
	if !errors.Is(err, admin.ErrCannotManageRole) {
		t.Fatalf("expected ErrCannotManageRole, got %v", err)
	}
}

func TestBlacklistWalletValuesLowercased(t *testing.T) {
	svc, repo, _ := newTestService(t)
	actor := seedAdmin(t, repo, admin.RoleAdmin, true)

	entry, err := svc.AddToBlacklist(context.Background(), actor.ID, "wallet", "0xABCDEF0123456789abcdef0123456789ABCDEF01", "chargeback fraud")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.Value != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("wallet not lowercased: %s", entry.Value)
	}

	// Removal accepts any casing too
	if err := svc.RemoveFromBlacklist(context.Background(), actor.ID, "wallet", "0xABCDEF0123456789abcdef0123456789ABCDEF01", "appeal accepted"); err != nil {
		t.Fatalf("remove: %v", err)
	}
}
