package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordPending appends an earned reward. Amount must be a positive integer
// and the source must be in the closed enum. The wallet is stored lowercased;
// the claim path matches by exact equality, so a checksummed address written
// verbatim would never be found again.
func (s *Service) RecordPending(ctx context.Context, userID uuid.UUID, wallet string, amount int64, source RewardSource) (*PendingReward, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !source.Valid() {
		return nil, ErrUnknownSource
	}
	wallet = strings.ToLower(wallet)

	reward := &PendingReward{
		ID:        uuid.New(),
		UserID:    userID,
		Wallet:    wallet,
		Amount:    amount,
		Source:    source,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreatePending(ctx, reward); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("wallet", wallet).
		Int64("amount", amount).
		Str("source", string(source)).
		Msg("pending reward recorded")
	return reward, nil
}

// MarkClaimed consumes a pending reward, at most once, tagging it with the
// claim record that reserved it.
func (s *Service) MarkClaimed(ctx context.Context, pendingID, recordID uuid.UUID) error {
	return s.repo.MarkClaimed(ctx, pendingID, recordID)
}

// ReleaseClaim re-opens a consumed pending reward after a failed transfer.
func (s *Service) ReleaseClaim(ctx context.Context, pendingID uuid.UUID) error {
	if err := s.repo.ReleaseClaim(ctx, pendingID); err != nil {
		return err
	}
	log.Warn().Str("pending_id", pendingID.String()).Msg("pending reward released after failed transfer")
	return nil
}

// ListUnclaimed returns a wallet's claimable rewards, oldest first.
func (s *Service) ListUnclaimed(ctx context.Context, wallet string) ([]*PendingReward, error) {
	return s.repo.ListUnclaimed(ctx, wallet)
}

// SumUnclaimed returns the total claimable amount for a wallet.
func (s *Service) SumUnclaimed(ctx context.Context, wallet string) (int64, error) {
	return s.repo.SumUnclaimed(ctx, wallet)
}

// GetBalances returns the user's reward balance fields.
func (s *Service) GetBalances(ctx context.Context, userID uuid.UUID) (*Balances, error) {
	return s.repo.GetBalances(ctx, userID)
}

// ResetAll zeroes a user's reward balances. The repository guarantees the
// audit snapshot lands in the same transaction; an audit failure aborts the
// reset entirely.
func (s *Service) ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*Balances, error) {
	previous, err := s.repo.ResetAll(ctx, userID, adminID, reason)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Int64("previous_total_earned", previous.TotalEarned).
		Msg("user rewards reset")
	return previous, nil
}
