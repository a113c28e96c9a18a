package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines ledger data access. The ledger exclusively owns
// pending_rewards and claim_records state; other domains only read.
type Repository interface {
	// Pending rewards
	CreatePending(ctx context.Context, reward *PendingReward) error
	GetPending(ctx context.Context, id uuid.UUID) (*PendingReward, error)
	ListUnclaimed(ctx context.Context, wallet string) ([]*PendingReward, error)
	SumUnclaimed(ctx context.Context, wallet string) (int64, error)
	MarkClaimed(ctx context.Context, id, recordID uuid.UUID) error
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error)

	// Claim records
	CreateClaimRecord(ctx context.Context, record *ClaimRecord) error
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ClaimStatus, txHash string) error
	GetClaimRecord(ctx context.Context, id uuid.UUID) (*ClaimRecord, error)
	LastClaimAt(ctx context.Context, wallet string, claimType ClaimType) (time.Time, bool, error)
	CountSuccessfulClaims(ctx context.Context, userID uuid.UUID) (int, error)
	ListByStatus(ctx context.Context, status ClaimStatus, olderThan time.Duration, limit int) ([]*ClaimRecord, error)

	// Balances
	GetBalances(ctx context.Context, userID uuid.UUID) (*Balances, error)
	AddClaimed(ctx context.Context, userID uuid.UUID, amount int64) error
	ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*Balances, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ledger repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Pending rewards

func (r *repository) CreatePending(ctx context.Context, reward *PendingReward) error {
	query := `
		INSERT INTO pending_rewards (id, user_id, wallet, amount, source, claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		reward.ID,
		reward.UserID,
		reward.Wallet,
		reward.Amount,
		string(reward.Source),
		reward.CreatedAt,
	)
	return err
}

func (r *repository) GetPending(ctx context.Context, id uuid.UUID) (*PendingReward, error) {
	var reward PendingReward
	err := r.db.GetContext(ctx, &reward, `SELECT * FROM pending_rewards WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListUnclaimed(ctx context.Context, wallet string) ([]*PendingReward, error) {
	var rewards []*PendingReward
	err := r.db.SelectContext(ctx, &rewards, `
		SELECT * FROM pending_rewards
		WHERE wallet = $1 AND claimed = false
		ORDER BY created_at ASC
	`, wallet)
	return rewards, err
}

func (r *repository) SumUnclaimed(ctx context.Context, wallet string) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM pending_rewards
		WHERE wallet = $1 AND claimed = false
	`, wallet)
	return sum, err
}

// MarkClaimed flips the claimed flag with a single conditional update. Under
// concurrent claim attempts on the same reward exactly one caller sees a row
// affected; the rest get ErrAlreadyClaimed.
func (r *repository) MarkClaimed(ctx context.Context, id, recordID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_rewards
		SET claimed = true, claimed_at = now(), claim_record_id = $2
		WHERE id = $1 AND claimed = false
	`, id, recordID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// ReleaseClaim is the rollback path after a failed on-chain submission.
func (r *repository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_rewards
		SET claimed = false, claimed_at = NULL, claim_record_id = NULL
		WHERE id = $1 AND claimed = true
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseByRecord re-opens every pending reward a claim attempt reserved.
// Returns the number of rewards released.
func (r *repository) ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_rewards
		SET claimed = false, claimed_at = NULL, claim_record_id = NULL
		WHERE claim_record_id = $1 AND claimed = true
	`, recordID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Claim records

// CreateClaimRecord inserts the record for a claim attempt. A partial unique
// index on (wallet, claim_type) for one-shot types turns a second welcome
// claim into a duplicate-key error, mapped to ErrAlreadyClaimed.
func (r *repository) CreateClaimRecord(ctx context.Context, record *ClaimRecord) error {
	query := `
		INSERT INTO claim_records (id, user_id, wallet, claim_type, game_id, message, signature, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Wallet,
		string(record.ClaimType),
		record.GameID,
		record.Message,
		record.Signature,
		record.Amount,
		string(record.Status),
		record.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyClaimed
		}
		return err
	}
	return nil
}

func (r *repository) UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ClaimStatus, txHash string) error {
	var hash interface{}
	if txHash != "" {
		hash = txHash
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE claim_records
		SET status = $1, tx_hash = COALESCE($2, tx_hash), updated_at = now()
		WHERE id = $3
	`, string(status), hash, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetClaimRecord(ctx context.Context, id uuid.UUID) (*ClaimRecord, error) {
	var record ClaimRecord
	err := r.db.GetContext(ctx, &record, `SELECT * FROM claim_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) LastClaimAt(ctx context.Context, wallet string, claimType ClaimType) (time.Time, bool, error) {
	var last time.Time
	err := r.db.GetContext(ctx, &last, `
		SELECT created_at FROM claim_records
		WHERE wallet = $1 AND claim_type = $2 AND status IN ('submitted', 'confirmed', 'needs_reconcile')
		ORDER BY created_at DESC
		LIMIT 1
	`, wallet, string(claimType))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

func (r *repository) CountSuccessfulClaims(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM claim_records
		WHERE user_id = $1 AND status IN ('confirmed', 'needs_reconcile')
	`, userID)
	return count, err
}

func (r *repository) ListByStatus(ctx context.Context, status ClaimStatus, olderThan time.Duration, limit int) ([]*ClaimRecord, error) {
	var records []*ClaimRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM claim_records
		WHERE status = $1 AND updated_at < now() - $2::interval
		ORDER BY updated_at ASC
		LIMIT $3
	`, string(status), olderThan.String(), limit)
	return records, err
}

// Balances

func (r *repository) GetBalances(ctx context.Context, userID uuid.UUID) (*Balances, error) {
	var balances Balances
	err := r.db.GetContext(ctx, &balances, `
		SELECT wallet_balance, camly_balance, pending_amount, claimed_amount, total_earned
		FROM profiles WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &balances, nil
}

func (r *repository) AddClaimed(ctx context.Context, userID uuid.UUID, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET claimed_amount = claimed_amount + $1,
		    total_earned = total_earned + $1,
		    pending_amount = GREATEST(pending_amount - $1, 0),
		    updated_at = now()
		WHERE user_id = $2
	`, amount, userID)
	return err
}

// ResetAll zeroes a user's reward balance fields. The before/after snapshot is
// written to admin_audit_logs inside the same transaction, before the zeroing
// update, so a zeroed ledger without an audit entry cannot exist.
func (r *repository) ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*Balances, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var previous Balances
	err = tx.GetContext(ctx, &previous, `
		SELECT wallet_balance, camly_balance, pending_amount, claimed_amount, total_earned
		FROM profiles WHERE user_id = $1 FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	oldJSON, _ := json.Marshal(previous)
	newJSON, _ := json.Marshal(Balances{})

	// Audit first: if this insert fails the whole reset rolls back
	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_audit_logs (id, admin_id, action, entity_type, entity_id, old_value, new_value, reason, created_at)
		VALUES ($1, $2, 'rewards.reset', 'user', $3, $4, $5, $6, now())
	`, uuid.New(), adminID, userID, oldJSON, newJSON, reason)
	if err != nil {
		return nil, ErrAuditWriteFailed
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET wallet_balance = 0, camly_balance = 0, pending_amount = 0,
		    claimed_amount = 0, total_earned = 0, updated_at = now()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &previous, nil
}
