package claim

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/funplanet/claim-api/internal/domain/challenge"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/domain/trust"
	"github.com/funplanet/claim-api/internal/pkg/chain"
)

// Ledger is the slice of the reward ledger the orchestrator drives.
// Satisfied by ledger.Repository.
type Ledger interface {
	ListUnclaimed(ctx context.Context, wallet string) ([]*ledger.PendingReward, error)
	MarkClaimed(ctx context.Context, id, recordID uuid.UUID) error
	ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error)
	CreateClaimRecord(ctx context.Context, record *ledger.ClaimRecord) error
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ledger.ClaimStatus, txHash string) error
	GetClaimRecord(ctx context.Context, id uuid.UUID) (*ledger.ClaimRecord, error)
	LastClaimAt(ctx context.Context, wallet string, claimType ledger.ClaimType) (time.Time, bool, error)
	AddClaimed(ctx context.Context, userID uuid.UUID, amount int64) error
}

// Evaluator makes the eligibility decision. Satisfied by trust.Service.
type Evaluator interface {
	RecordIP(ctx context.Context, userID uuid.UUID, ip string) error
	Evaluate(ctx context.Context, input trust.EvalInput) (*trust.Decision, error)
}

// Pauser reports the global kill switch. Satisfied by the admin settings
// service; reads fresh state so a pause takes effect without a restart.
type Pauser interface {
	ClaimsPaused(ctx context.Context) (bool, error)
}

// AlertSink receives fire-and-forget operational alerts.
type AlertSink interface {
	Alert(ctx context.Context, kind, message string)
}

// Policy holds the admin-tunable payout amounts and cooldown.
type Policy struct {
	WelcomeAmount      int64
	PlayGameAmount     int64
	UploadGameAmount   int64
	DailyCheckinAmount int64
	Cooldown           time.Duration
}

// Service runs each claim attempt through the full pipeline: challenge
// consumption, signature verification, pause flag, eligibility, amount
// resolution, cap and ledger reservation, on-chain transfer.
type Service struct {
	ledger Ledger
	eval   Evaluator
	chain  chain.Client
	nonces NonceStore
	caps   CapGuard
	pauser Pauser
	alerts AlertSink

	mu     sync.RWMutex
	policy Policy
}

func NewService(ledgerRepo Ledger, eval Evaluator, chainClient chain.Client, nonces NonceStore, caps CapGuard, pauser Pauser, alerts AlertSink, policy Policy) *Service {
	return &Service{
		ledger: ledgerRepo,
		eval:   eval,
		chain:  chainClient,
		nonces: nonces,
		caps:   caps,
		pauser: pauser,
		alerts: alerts,
		policy: policy,
	}
}

// UpdatePolicy swaps payout amounts and cooldown at runtime (admin settings
// change).
func (s *Service) UpdatePolicy(policy Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
}

func (s *Service) currentPolicy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// IssueChallenge builds a signing challenge for a wallet and stores its nonce
// for single use.
func (s *Service) IssueChallenge(ctx context.Context, wallet, claimType string) (*challenge.Challenge, error) {
	ch, err := challenge.Build(wallet, claimType)
	if err != nil {
		return nil, err
	}
	if err := s.nonces.Issue(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// SubmitInput carries one signed claim attempt.
type SubmitInput struct {
	UserID    uuid.UUID
	Wallet    string
	IP        string
	AgeGroup  string
	ClaimType ledger.ClaimType
	GameID    string
	Nonce     string
	Message   string
	Signature string
}

// Submit runs one claim attempt end to end. A *Result with StateRejected is a
// normal outcome, not an error; err is reserved for infrastructure failures.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	wallet := strings.ToLower(input.Wallet)

	if err := s.nonces.Consume(ctx, input.Nonce, input.Message); err != nil {
		switch {
		case errors.Is(err, ErrChallengeExpired):
			return rejected(ReasonChallengeExpired, 0), nil
		case errors.Is(err, ErrChallengeMismatch):
			return rejected(ReasonInvalidSignature, 0), nil
		default:
			return nil, err
		}
	}

	if err := challenge.Verify(input.Message, input.Signature, wallet); err != nil {
		log.Warn().
			Str("wallet", wallet).
			Str("user_id", input.UserID.String()).
			Err(err).
			Msg("claim signature rejected")
		return rejected(ReasonInvalidSignature, 0), nil
	}

	paused, err := s.pauser.ClaimsPaused(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		return rejected(ReasonClaimsPaused, 0), nil
	}

	policy := s.currentPolicy()

	// One-shot types are permanently done after a success; repeatable types
	// wait out the cooldown window.
	last, found, err := s.ledger.LastClaimAt(ctx, wallet, input.ClaimType)
	if err != nil {
		return nil, err
	}
	if found {
		if input.ClaimType.OneShot() {
			return rejected(ReasonAlreadyClaimed, 0), nil
		}
		if remaining := policy.Cooldown - time.Since(last); remaining > 0 {
			return rejected(ReasonCooldownActive, int64(remaining.Seconds())), nil
		}
	}

	amount, bundle, err := s.resolveAmount(ctx, wallet, input.ClaimType, policy)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return rejected(ReasonNothingToClaim, 0), nil
	}

	// The IP association must land before the density check reads it, or a
	// farm of fresh accounts behind one IP never accumulates history.
	if err := s.eval.RecordIP(ctx, input.UserID, input.IP); err != nil {
		return nil, err
	}

	decision, err := s.eval.Evaluate(ctx, trust.EvalInput{
		UserID:    input.UserID,
		Wallet:    wallet,
		IP:        input.IP,
		ClaimType: input.ClaimType,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Eligible {
		return rejected(decision.Reason, decision.CooldownSeconds), nil
	}

	if err := s.caps.Reserve(ctx, input.UserID, input.AgeGroup, amount); err != nil {
		if errors.Is(err, ErrDailyCapExceeded) {
			return rejected(ReasonDailyCapExceeded, 0), nil
		}
		return nil, err
	}

	record := &ledger.ClaimRecord{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Wallet:    wallet,
		ClaimType: input.ClaimType,
		Message:   input.Message,
		Signature: input.Signature,
		Amount:    amount,
		Status:    ledger.StatusReserved,
		CreatedAt: time.Now(),
	}
	if input.GameID != "" {
		record.GameID = sql.NullString{String: input.GameID, Valid: true}
	}

	if err := s.ledger.CreateClaimRecord(ctx, record); err != nil {
		s.caps.Release(ctx, input.UserID, amount)
		if errors.Is(err, ledger.ErrAlreadyClaimed) {
			return rejected(ReasonAlreadyClaimed, 0), nil
		}
		return nil, err
	}

	for _, reward := range bundle {
		if err := s.ledger.MarkClaimed(ctx, reward.ID, record.ID); err != nil {
			// A concurrent attempt won part of the bundle; give everything
			// back and let the winner finish.
			s.rollback(ctx, input.UserID, record.ID, amount)
			if errors.Is(err, ledger.ErrAlreadyClaimed) {
				return rejected(ReasonAlreadyClaimed, 0), nil
			}
			return nil, err
		}
	}

	if decision.RequiresApproval {
		if err := s.ledger.UpdateClaimStatus(ctx, record.ID, ledger.StatusPendingReview, ""); err != nil {
			s.rollback(ctx, input.UserID, record.ID, amount)
			return nil, err
		}
		s.alerts.Alert(ctx, "approval_queued", "claim "+record.ID.String()+" parked for review")
		log.Info().
			Str("claim_id", record.ID.String()).
			Str("wallet", wallet).
			Int64("amount", amount).
			Str("tier", string(decision.Tier)).
			Msg("claim parked for admin review")
		return &Result{State: StatePendingReview, Amount: amount}, nil
	}

	return s.payout(ctx, record, input.UserID, amount)
}

// payout submits the transfer and settles the claim record. Shared by the
// direct path and admin approval.
func (s *Service) payout(ctx context.Context, record *ledger.ClaimRecord, userID uuid.UUID, amount int64) (*Result, error) {
	txHash, err := s.chain.Transfer(ctx, record.Wallet, big.NewInt(amount))
	if err != nil {
		log.Error().
			Str("claim_id", record.ID.String()).
			Str("wallet", record.Wallet).
			Int64("amount", amount).
			Err(err).
			Msg("on-chain transfer failed, rolling back reservation")
		s.rollback(ctx, userID, record.ID, amount)
		return rejected(ReasonTransferFailed, 0), nil
	}

	// Funds have left the hot wallet. From here every failure is recorded,
	// never rolled back.
	if err := s.ledger.UpdateClaimStatus(ctx, record.ID, ledger.StatusSubmitted, txHash); err != nil {
		s.markReconcile(ctx, record.ID, txHash, err)
		return &Result{State: StateConfirmed, TxHash: txHash, Amount: amount}, nil
	}

	if err := s.ledger.AddClaimed(ctx, userID, amount); err != nil {
		s.markReconcile(ctx, record.ID, txHash, err)
		return &Result{State: StateConfirmed, TxHash: txHash, Amount: amount}, nil
	}

	if err := s.ledger.UpdateClaimStatus(ctx, record.ID, ledger.StatusConfirmed, txHash); err != nil {
		s.markReconcile(ctx, record.ID, txHash, err)
	}

	log.Info().
		Str("claim_id", record.ID.String()).
		Str("wallet", record.Wallet).
		Str("tx_hash", txHash).
		Int64("amount", amount).
		Msg("claim paid out")
	return &Result{State: StateConfirmed, TxHash: txHash, Amount: amount}, nil
}

// ApprovePayout resumes the payout path for a claim parked in the approval
// queue.
func (s *Service) ApprovePayout(ctx context.Context, recordID uuid.UUID) (*Result, error) {
	record, err := s.ledger.GetClaimRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status != ledger.StatusPendingReview {
		return nil, ErrNotReviewable
	}
	return s.payout(ctx, record, record.UserID, record.Amount)
}

// RejectClaim releases everything a parked claim reserved and closes it.
func (s *Service) RejectClaim(ctx context.Context, recordID uuid.UUID) error {
	record, err := s.ledger.GetClaimRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if record.Status != ledger.StatusPendingReview {
		return ErrNotReviewable
	}

	if _, err := s.ledger.ReleaseByRecord(ctx, recordID); err != nil {
		return err
	}
	s.caps.Release(ctx, record.UserID, record.Amount)
	return s.ledger.UpdateClaimStatus(ctx, recordID, ledger.StatusRejected, "")
}

// Claimable lists a wallet's unclaimed rewards and their total, for the
// claim screen.
func (s *Service) Claimable(ctx context.Context, wallet string) ([]*ledger.PendingReward, int64, error) {
	rewards, err := s.ledger.ListUnclaimed(ctx, strings.ToLower(wallet))
	if err != nil {
		return nil, 0, err
	}
	var total int64
	for _, reward := range rewards {
		total += reward.Amount
	}
	return rewards, total, nil
}

// resolveAmount maps the claim type to its payout. claim_pending pays the sum
// of the wallet's unclaimed rewards and returns them for reservation.
func (s *Service) resolveAmount(ctx context.Context, wallet string, claimType ledger.ClaimType, policy Policy) (int64, []*ledger.PendingReward, error) {
	switch claimType {
	case ledger.ClaimTypeWelcome:
		return policy.WelcomeAmount, nil, nil
	case ledger.ClaimTypePlayGame:
		return policy.PlayGameAmount, nil, nil
	case ledger.ClaimTypeUploadGame:
		return policy.UploadGameAmount, nil, nil
	case ledger.ClaimTypeDailyCheckin:
		return policy.DailyCheckinAmount, nil, nil
	case ledger.ClaimTypePending:
		rewards, err := s.ledger.ListUnclaimed(ctx, wallet)
		if err != nil {
			return 0, nil, err
		}
		var total int64
		for _, reward := range rewards {
			total += reward.Amount
		}
		return total, rewards, nil
	default:
		return 0, nil, ledger.ErrUnknownClaimType
	}
}

// rollback undoes a reservation before any funds moved.
func (s *Service) rollback(ctx context.Context, userID, recordID uuid.UUID, amount int64) {
	if _, err := s.ledger.ReleaseByRecord(ctx, recordID); err != nil {
		log.Error().Err(err).Str("claim_id", recordID.String()).Msg("failed to release reserved rewards")
	}
	s.caps.Release(ctx, userID, amount)
	if err := s.ledger.UpdateClaimStatus(ctx, recordID, ledger.StatusFailed, ""); err != nil {
		log.Error().Err(err).Str("claim_id", recordID.String()).Msg("failed to mark claim record failed")
	}
}

// markReconcile flags a claim whose funds were sent but whose bookkeeping
// failed. The reconciler picks these up.
func (s *Service) markReconcile(ctx context.Context, recordID uuid.UUID, txHash string, cause error) {
	log.Error().
		Err(cause).
		Str("claim_id", recordID.String()).
		Str("tx_hash", txHash).
		Msg("funds sent but record update failed, flagging for reconciliation")
	if err := s.ledger.UpdateClaimStatus(ctx, recordID, ledger.StatusNeedsReconcile, txHash); err != nil {
		log.Error().Err(err).Str("claim_id", recordID.String()).Msg("failed to flag claim for reconciliation")
	}
	s.alerts.Alert(ctx, "needs_reconcile", "claim "+recordID.String()+" paid but not recorded, tx "+txHash)
}

func rejected(reason string, cooldownSeconds int64) *Result {
	return &Result{State: StateRejected, Reason: reason, CooldownSeconds: cooldownSeconds}
}
