package trust

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines access to the tables the evaluator consults. Blacklist
// rows are owned by the admin console; the single write here is the IP
// association appended on each claim submission.
type Repository interface {
	IsBlacklisted(ctx context.Context, wallet, ip string) (bool, error)
	CountAccountsForIP(ctx context.Context, ip string) (int, error)
	GetAccountMeta(ctx context.Context, userID uuid.UUID) (*AccountMeta, error)
	RecordIPAccount(ctx context.Context, ip string, userID uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates trust repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IsBlacklisted(ctx context.Context, wallet, ip string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM blacklist
		WHERE (kind = 'wallet' AND value = $1) OR (kind = 'ip' AND value = $2)
	`, strings.ToLower(wallet), ip)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountAccountsForIP(ctx context.Context, ip string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT user_id) FROM ip_accounts WHERE ip = $1
	`, ip)
	return count, err
}

func (r *repository) GetAccountMeta(ctx context.Context, userID uuid.UUID) (*AccountMeta, error) {
	var meta AccountMeta
	err := r.db.GetContext(ctx, &meta, `
		SELECT created_at, fraud_flags FROM profiles WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// RecordIPAccount appends an ip -> user association. Called on every claim
// submission so IP-density history stays complete; duplicates are ignored.
func (r *repository) RecordIPAccount(ctx context.Context, ip string, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ip_accounts (ip, user_id, first_seen_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ip, user_id) DO NOTHING
	`, ip, userID)
	return err
}
