package trust_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/trust"
)

type fakeTrustRepo struct {
	blacklistedWallets map[string]bool
	blacklistedIPs     map[string]bool
	ipAccounts         map[string]int
	ipUsers            map[string]map[uuid.UUID]bool
	meta               map[uuid.UUID]*trust.AccountMeta
}

func newFakeTrustRepo() *fakeTrustRepo {
	return &fakeTrustRepo{
		blacklistedWallets: make(map[string]bool),
		blacklistedIPs:     make(map[string]bool),
		ipAccounts:         make(map[string]int),
		ipUsers:            make(map[string]map[uuid.UUID]bool),
		meta:               make(map[uuid.UUID]*trust.AccountMeta),
	}
}

func (f *fakeTrustRepo) IsBlacklisted(ctx context.Context, wallet, ip string) (bool, error) {
	return f.blacklistedWallets[wallet] || f.blacklistedIPs[ip], nil
}

func (f *fakeTrustRepo) CountAccountsForIP(ctx context.Context, ip string) (int, error) {
	return f.ipAccounts[ip], nil
}

func (f *fakeTrustRepo) GetAccountMeta(ctx context.Context, userID uuid.UUID) (*trust.AccountMeta, error) {
	meta, ok := f.meta[userID]
	if !ok {
		return nil, trust.ErrUnknownAccount
	}
	return meta, nil
}

// RecordIPAccount mirrors the ON CONFLICT DO NOTHING upsert: a repeated pair
// does not inflate the distinct-account count.
func (f *fakeTrustRepo) RecordIPAccount(ctx context.Context, ip string, userID uuid.UUID) error {
	users, ok := f.ipUsers[ip]
	if !ok {
		users = make(map[uuid.UUID]bool)
		f.ipUsers[ip] = users
	}
	if !users[userID] {
		users[userID] = true
		f.ipAccounts[ip]++
	}
	return nil
}

type fakeHistory struct {
	claims map[uuid.UUID]int
}

func (f *fakeHistory) CountSuccessfulClaims(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.claims[userID], nil
}

type fakeLimiter struct {
	remaining int
	cooldown  time.Duration
}

func (f *fakeLimiter) Take(ctx context.Context, userID uuid.UUID) (int, time.Duration, error) {
	if f.remaining <= 0 {
		return 0, f.cooldown, nil
	}
	f.remaining--
	return f.remaining, 0, nil
}

func (f *fakeLimiter) Remaining(ctx context.Context, userID uuid.UUID) (int, time.Duration, error) {
	if f.remaining <= 0 {
		return 0, f.cooldown, nil
	}
	return f.remaining, 0, nil
}

func defaultPolicy() trust.Policy {
	return trust.Policy{
		MaxAccountsPerIP:  3,
		HourlyLimit:       10,
		MinAccountAgeDays: 1,
		ApprovalThreshold: 50000,
		NewAccountWindow:  7 * 24 * time.Hour,
	}
}

func seededService(repo *fakeTrustRepo, history *fakeHistory, limiter *fakeLimiter) *trust.Service {
	if history == nil {
		history = &fakeHistory{claims: map[uuid.UUID]int{}}
	}
	if limiter == nil {
		limiter = &fakeLimiter{remaining: 10, cooldown: time.Hour}
	}
	return trust.NewService(repo, history, limiter, defaultPolicy())
}

func TestBlacklistShortCircuits(t *testing.T) {
	repo := newFakeTrustRepo()
	userID := uuid.New()
	// Old account with perfect history: blacklist must still win
	repo.meta[userID] = &trust.AccountMeta{CreatedAt: time.Now().Add(-365 * 24 * time.Hour)}
	repo.blacklistedWallets["0xbad"] = true

	svc := seededService(repo, &fakeHistory{claims: map[uuid.UUID]int{userID: 50}}, nil)

	for i := 0; i < 5; i++ {
		decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
			UserID: userID, Wallet: "0xbad", IP: "10.0.0.1", Amount: 100,
		})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if decision.Eligible {
			t.Fatal("blacklisted wallet passed eligibility")
		}
		if decision.Reason != trust.ReasonBlacklisted {
			t.Fatalf("expected reason %q, got %q", trust.ReasonBlacklisted, decision.Reason)
		}
	}
}

func TestBlacklistedIPRejected(t *testing.T) {
	repo := newFakeTrustRepo()
	userID := uuid.New()
	repo.meta[userID] = &trust.AccountMeta{CreatedAt: time.Now().Add(-30 * 24 * time.Hour)}
	repo.blacklistedIPs["192.0.2.7"] = true

	svc := seededService(repo, nil, nil)

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: userID, Wallet: "0xgood", IP: "192.0.2.7",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Reason != trust.ReasonBlacklisted {
		t.Fatalf("expected blacklisted decision, got %+v", decision)
	}
}

func TestIPLimitOnlyAppliesToNewAccounts(t *testing.T) {
	repo := newFakeTrustRepo()
	repo.ipAccounts["10.0.0.9"] = 5

	newUser := uuid.New()
	repo.meta[newUser] = &trust.AccountMeta{CreatedAt: time.Now().Add(-24 * time.Hour)}

	oldUser := uuid.New()
	repo.meta[oldUser] = &trust.AccountMeta{CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}

	svc := seededService(repo, nil, nil)

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: newUser, Wallet: "0x1", IP: "10.0.0.9",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Reason != trust.ReasonIPLimit {
		t.Fatalf("new account over IP limit should be rejected, got %+v", decision)
	}

	decision, err = svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: oldUser, Wallet: "0x2", IP: "10.0.0.9",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Eligible {
		t.Fatalf("established account should not be retroactively punished, got %+v", decision)
	}
}

func TestRecordIPFeedsDensityCheck(t *testing.T) {
	repo := newFakeTrustRepo()
	svc := seededService(repo, nil, &fakeLimiter{remaining: 100})

	ip := "10.0.0.4"
	for i := 0; i < 3; i++ {
		sibling := uuid.New()
		repo.meta[sibling] = &trust.AccountMeta{CreatedAt: time.Now().Add(-2 * 24 * time.Hour)}
		if err := svc.RecordIP(context.Background(), sibling, ip); err != nil {
			t.Fatalf("record ip: %v", err)
		}
		// A replayed pair must not count twice
		if err := svc.RecordIP(context.Background(), sibling, ip); err != nil {
			t.Fatalf("record ip: %v", err)
		}
	}

	newcomer := uuid.New()
	repo.meta[newcomer] = &trust.AccountMeta{CreatedAt: time.Now().Add(-2 * 24 * time.Hour)}
	if err := svc.RecordIP(context.Background(), newcomer, ip); err != nil {
		t.Fatalf("record ip: %v", err)
	}

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: newcomer, Wallet: "0x4", IP: ip,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Reason != trust.ReasonIPLimit {
		t.Fatalf("fourth account on one IP should trip the density check, got %+v", decision)
	}
}

func TestRateLimitCarriesCooldown(t *testing.T) {
	repo := newFakeTrustRepo()
	userID := uuid.New()
	repo.meta[userID] = &trust.AccountMeta{CreatedAt: time.Now().Add(-30 * 24 * time.Hour)}

	limiter := &fakeLimiter{remaining: 0, cooldown: 42 * time.Minute}
	svc := seededService(repo, nil, limiter)

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: userID, Wallet: "0x1", IP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Reason != trust.ReasonRateLimited {
		t.Fatalf("expected rate_limited, got %+v", decision)
	}
	if decision.CooldownSeconds != int64((42 * time.Minute).Seconds()) {
		t.Fatalf("expected cooldown 2520s, got %d", decision.CooldownSeconds)
	}
}

func TestAccountTooNew(t *testing.T) {
	repo := newFakeTrustRepo()
	userID := uuid.New()
	repo.meta[userID] = &trust.AccountMeta{CreatedAt: time.Now().Add(-2 * time.Hour)}

	svc := seededService(repo, nil, nil)

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: userID, Wallet: "0x1", IP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Reason != trust.ReasonAccountTooNew {
		t.Fatalf("expected account_too_new, got %+v", decision)
	}
}

func TestTierAndApprovalThreshold(t *testing.T) {
	repo := newFakeTrustRepo()

	veteran := uuid.New()
	repo.meta[veteran] = &trust.AccountMeta{CreatedAt: time.Now().Add(-100 * 24 * time.Hour)}

	rookie := uuid.New()
	repo.meta[rookie] = &trust.AccountMeta{CreatedAt: time.Now().Add(-3 * 24 * time.Hour)}

	history := &fakeHistory{claims: map[uuid.UUID]int{veteran: 20, rookie: 0}}
	svc := seededService(repo, history, &fakeLimiter{remaining: 100})

	decision, err := svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: veteran, Wallet: "0x1", IP: "10.0.0.1", Amount: 100000,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Tier != trust.TierHigh || decision.RequiresApproval {
		t.Fatalf("veteran should auto-approve large claims, got %+v", decision)
	}

	decision, err = svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: rookie, Wallet: "0x2", IP: "10.0.0.2", Amount: 100000,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Eligible {
		t.Fatalf("rookie above threshold should still be eligible, got %+v", decision)
	}
	if !decision.RequiresApproval {
		t.Fatalf("rookie above threshold must queue for approval, got %+v", decision)
	}

	// Under the threshold no approval is needed even at low tier
	decision, _ = svc.Evaluate(context.Background(), trust.EvalInput{
		UserID: rookie, Wallet: "0x2", IP: "10.0.0.2", Amount: 500,
	})
	if decision.RequiresApproval {
		t.Fatalf("small claim should not require approval, got %+v", decision)
	}
}

func TestFraudFlagsZeroTrust(t *testing.T) {
	repo := newFakeTrustRepo()
	userID := uuid.New()
	repo.meta[userID] = &trust.AccountMeta{
		CreatedAt:  time.Now().Add(-200 * 24 * time.Hour),
		FraudFlags: 2,
	}

	history := &fakeHistory{claims: map[uuid.UUID]int{userID: 30}}
	svc := seededService(repo, history, &fakeLimiter{remaining: 100})

	info, err := svc.GetTrustInfo(context.Background(), userID)
	if err != nil {
		t.Fatalf("get trust info: %v", err)
	}
	if info.TrustScore != 0 || info.AutoApproveTier != trust.TierNone {
		t.Fatalf("fraud-flagged account should have zero trust, got %+v", info)
	}
}

func TestUnknownAccount(t *testing.T) {
	svc := seededService(newFakeTrustRepo(), nil, nil)

	_, err := svc.Evaluate(context.Background(), trust.EvalInput{UserID: uuid.New(), Wallet: "0x1", IP: "10.0.0.1"})
	if !errors.Is(err, trust.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}
