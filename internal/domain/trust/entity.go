package trust

import (
	"time"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/ledger"
)

// Tier buckets account history into a coarse trust level. Higher tiers get
// automatic approval for larger claim amounts; lower tiers queue for admin
// review above the approval threshold.
type Tier string

const (
	TierNone   Tier = "none"
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Machine-readable rejection reasons. The client reacts differently to each
// (cooldown countdown vs. permanent block), so these are wire-stable.
const (
	ReasonBlacklisted   = "blacklisted"
	ReasonIPLimit       = "ip_limit"
	ReasonRateLimited   = "rate_limited"
	ReasonAccountTooNew = "account_too_new"
)

// EvalInput carries everything the evaluator needs for one decision.
type EvalInput struct {
	UserID    uuid.UUID
	Wallet    string
	IP        string
	ClaimType ledger.ClaimType
	Amount    int64
}

// Decision is the evaluator's output. RequiresApproval means the claim is
// allowed but must park in the admin approval queue before payout.
type Decision struct {
	Eligible         bool   `json:"eligible"`
	Reason           string `json:"reason,omitempty"`
	Tier             Tier   `json:"tier"`
	CooldownSeconds  int64  `json:"cooldown_seconds,omitempty"`
	RequiresApproval bool   `json:"requires_approval"`
}

// TrustInfo is derived entirely from claim history and account metadata,
// recomputed per query and never stored.
type TrustInfo struct {
	TrustScore              float64 `json:"trust_score"`
	AccountAgeDays          int     `json:"account_age_days"`
	SuccessfulClaims        int     `json:"successful_claims"`
	CooldownRemaining       int64   `json:"cooldown_remaining"`
	HourlyRequestsRemaining int     `json:"hourly_requests_remaining"`
	AutoApproveTier         Tier    `json:"auto_approve_tier"`
}

// AccountMeta is the profile slice the evaluator reads.
type AccountMeta struct {
	CreatedAt  time.Time `db:"created_at"`
	FraudFlags int       `db:"fraud_flags"`
}

// Policy holds the admin-tunable knobs for eligibility decisions.
type Policy struct {
	MaxAccountsPerIP  int
	HourlyLimit       int
	MinAccountAgeDays int
	ApprovalThreshold int64
	// Accounts younger than this window are the ones IP-density limits apply
	// to; existing accounts under the limit are not retroactively punished.
	NewAccountWindow time.Duration
}
