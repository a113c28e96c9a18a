package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ClaimType identifies which reward event a wallet is claiming against.
// Values are wire-level stable strings.
type ClaimType string

const (
	ClaimTypeWelcome      ClaimType = "welcome"
	ClaimTypePlayGame     ClaimType = "playgame"
	ClaimTypeUploadGame   ClaimType = "uploadgame"
	ClaimTypeDailyCheckin ClaimType = "daily_checkin"
	ClaimTypePending      ClaimType = "claim_pending"
)

// Valid reports whether t is a known claim type.
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimTypeWelcome, ClaimTypePlayGame, ClaimTypeUploadGame, ClaimTypeDailyCheckin, ClaimTypePending:
		return true
	}
	return false
}

// OneShot reports whether t is payable at most once per wallet ever.
// Repeatable types are gated by cooldown instead.
func (t ClaimType) OneShot() bool {
	return t == ClaimTypeWelcome
}

// RewardSource is the closed set of pending-reward origins. Unknown sources
// are rejected so fraud analytics stay meaningful.
type RewardSource string

const (
	SourcePlaytime     RewardSource = "playtime"
	SourceUploadBonus  RewardSource = "upload_bonus"
	SourceDailyCheckin RewardSource = "daily_checkin"
	SourceReferral     RewardSource = "referral"
	SourceAdminGrant   RewardSource = "admin_grant"
)

// Valid reports whether s is a known reward source.
func (s RewardSource) Valid() bool {
	switch s {
	case SourcePlaytime, SourceUploadBonus, SourceDailyCheckin, SourceReferral, SourceAdminGrant:
		return true
	}
	return false
}

// ClaimStatus tracks a claim record through the orchestrator state machine.
type ClaimStatus string

const (
	StatusReserved       ClaimStatus = "reserved"
	StatusSubmitted      ClaimStatus = "submitted"
	StatusConfirmed      ClaimStatus = "confirmed"
	StatusFailed         ClaimStatus = "failed"
	StatusNeedsReconcile ClaimStatus = "needs_reconcile"
	StatusPendingReview  ClaimStatus = "pending_review"
	StatusRejected       ClaimStatus = "rejected"
)

// PendingReward is an earned-but-not-yet-paid-out amount. Append-only; the
// claimed flag flips false -> true exactly once and is never re-opened except
// by the orchestrator rollback path.
type PendingReward struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	Wallet    string       `db:"wallet" json:"wallet"`
	Amount    int64        `db:"amount" json:"amount"`
	Source    RewardSource `db:"source" json:"source"`
	Claimed   bool         `db:"claimed" json:"claimed"`
	// ClaimRecordID links a consumed reward to the claim attempt that reserved
	// it, so a rejected or failed attempt can release its whole bundle.
	ClaimRecordID uuid.NullUUID `db:"claim_record_id" json:"-"`
	ClaimedAt     sql.NullTime  `db:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// ClaimRecord is the durable record of one claim attempt that reached the
// ledger, including the signed challenge that authorized it.
type ClaimRecord struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Wallet    string         `db:"wallet" json:"wallet"`
	ClaimType ClaimType      `db:"claim_type" json:"claim_type"`
	GameID    sql.NullString `db:"game_id" json:"game_id,omitempty"`
	Message   string         `db:"message" json:"-"`
	Signature string         `db:"signature" json:"-"`
	TxHash    sql.NullString `db:"tx_hash" json:"tx_hash,omitempty"`
	Amount    int64          `db:"amount" json:"amount"`
	Status    ClaimStatus    `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Balances mirrors the reward balance fields on a user's profile row.
type Balances struct {
	WalletBalance int64 `db:"wallet_balance" json:"wallet_balance"`
	CamlyBalance  int64 `db:"camly_balance" json:"camly_balance"`
	PendingAmount int64 `db:"pending_amount" json:"pending_amount"`
	ClaimedAmount int64 `db:"claimed_amount" json:"claimed_amount"`
	TotalEarned   int64 `db:"total_earned" json:"total_earned"`
}
