package trust

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClaimHistory is the slice of the ledger the evaluator reads. Satisfied by
// ledger.Repository.
type ClaimHistory interface {
	CountSuccessfulClaims(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service computes eligibility decisions. Evaluate itself is pure with
// respect to its inputs at call time; its only side effect is consuming one
// unit of the hourly rate budget. IP history is written separately through
// RecordIP.
type Service struct {
	repo    Repository
	history ClaimHistory
	limiter RateLimiter

	mu     sync.RWMutex
	policy Policy
}

func NewService(repo Repository, history ClaimHistory, limiter RateLimiter, policy Policy) *Service {
	if policy.NewAccountWindow <= 0 {
		policy.NewAccountWindow = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, history: history, limiter: limiter, policy: policy}
}

// UpdatePolicy swaps the eligibility knobs at runtime (admin settings change).
func (s *Service) UpdatePolicy(policy Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if policy.NewAccountWindow <= 0 {
		policy.NewAccountWindow = 7 * 24 * time.Hour
	}
	s.policy = policy
}

func (s *Service) currentPolicy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// RecordIP appends the ip -> user association the density check counts.
// Called on every claim submission, before Evaluate, so the history is
// complete by the time the check runs.
func (s *Service) RecordIP(ctx context.Context, userID uuid.UUID, ip string) error {
	return s.repo.RecordIPAccount(ctx, ip, userID)
}

// Evaluate runs the eligibility checks in order. Blacklist short-circuits
// everything else; the remaining checks each map to their own reason code.
func (s *Service) Evaluate(ctx context.Context, input EvalInput) (*Decision, error) {
	policy := s.currentPolicy()

	blacklisted, err := s.repo.IsBlacklisted(ctx, input.Wallet, input.IP)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		log.Warn().
			Str("user_id", input.UserID.String()).
			Str("wallet", input.Wallet).
			Str("ip", input.IP).
			Msg("blacklisted claim attempt")
		return &Decision{Eligible: false, Reason: ReasonBlacklisted, Tier: TierNone}, nil
	}

	meta, err := s.repo.GetAccountMeta(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	accountAge := time.Since(meta.CreatedAt)

	// IP density only bites new accounts; established ones under the same IP
	// are not retroactively punished.
	if accountAge < policy.NewAccountWindow {
		accounts, err := s.repo.CountAccountsForIP(ctx, input.IP)
		if err != nil {
			return nil, err
		}
		if accounts >= policy.MaxAccountsPerIP {
			return &Decision{Eligible: false, Reason: ReasonIPLimit, Tier: TierNone}, nil
		}
	}

	remaining, cooldown, err := s.limiter.Take(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if remaining == 0 && cooldown > 0 {
		return &Decision{
			Eligible:        false,
			Reason:          ReasonRateLimited,
			Tier:            TierNone,
			CooldownSeconds: int64(cooldown.Seconds()),
		}, nil
	}

	ageDays := int(accountAge.Hours() / 24)
	if ageDays < policy.MinAccountAgeDays {
		return &Decision{Eligible: false, Reason: ReasonAccountTooNew, Tier: TierNone}, nil
	}

	claims, err := s.history.CountSuccessfulClaims(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	tier := computeTier(ageDays, claims, meta.FraudFlags)
	requiresApproval := input.Amount > policy.ApprovalThreshold && (tier == TierNone || tier == TierLow)

	return &Decision{Eligible: true, Tier: tier, RequiresApproval: requiresApproval}, nil
}

// GetTrustInfo reports the full derived trust picture for a user. Read-only;
// does not consume rate budget.
func (s *Service) GetTrustInfo(ctx context.Context, userID uuid.UUID) (*TrustInfo, error) {
	meta, err := s.repo.GetAccountMeta(ctx, userID)
	if err != nil {
		return nil, err
	}

	claims, err := s.history.CountSuccessfulClaims(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining, cooldown, err := s.limiter.Remaining(ctx, userID)
	if err != nil {
		return nil, err
	}

	ageDays := int(time.Since(meta.CreatedAt).Hours() / 24)
	return &TrustInfo{
		TrustScore:              trustScore(ageDays, claims, meta.FraudFlags),
		AccountAgeDays:          ageDays,
		SuccessfulClaims:        claims,
		CooldownRemaining:       int64(cooldown.Seconds()),
		HourlyRequestsRemaining: remaining,
		AutoApproveTier:         computeTier(ageDays, claims, meta.FraudFlags),
	}, nil
}

// trustScore weights account age against proven claim history. Fraud flags
// zero the score outright.
func trustScore(ageDays, successfulClaims, fraudFlags int) float64 {
	if fraudFlags > 0 {
		return 0
	}
	score := float64(ageDays)*2 + float64(successfulClaims)*10
	if score > 100 {
		score = 100
	}
	return score
}

func computeTier(ageDays, successfulClaims, fraudFlags int) Tier {
	score := trustScore(ageDays, successfulClaims, fraudFlags)
	switch {
	case score >= 80:
		return TierHigh
	case score >= 40:
		return TierMedium
	case score >= 10:
		return TierLow
	default:
		return TierNone
	}
}
