package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/ledger"
)

type fakeRepo struct {
	mu       sync.Mutex
	pending  map[uuid.UUID]*ledger.PendingReward
	balances map[uuid.UUID]*ledger.Balances
	audits   int

	failAudit bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pending:  make(map[uuid.UUID]*ledger.PendingReward),
		balances: make(map[uuid.UUID]*ledger.Balances),
	}
}

func (f *fakeRepo) CreatePending(ctx context.Context, reward *ledger.PendingReward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[reward.ID] = reward
	return nil
}

func (f *fakeRepo) GetPending(ctx context.Context, id uuid.UUID) (*ledger.PendingReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reward, ok := f.pending[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return reward, nil
}

func (f *fakeRepo) ListUnclaimed(ctx context.Context, wallet string) ([]*ledger.PendingReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.PendingReward
	for _, reward := range f.pending {
		if reward.Wallet == wallet && !reward.Claimed {
			out = append(out, reward)
		}
	}
	return out, nil
}

func (f *fakeRepo) SumUnclaimed(ctx context.Context, wallet string) (int64, error) {
	rewards, _ := f.ListUnclaimed(ctx, wallet)
	var sum int64
	for _, reward := range rewards {
		sum += reward.Amount
	}
	return sum, nil
}

func (f *fakeRepo) MarkClaimed(ctx context.Context, id, recordID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reward, ok := f.pending[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if reward.Claimed {
		return ledger.ErrAlreadyClaimed
	}
	reward.Claimed = true
	reward.ClaimRecordID = uuid.NullUUID{UUID: recordID, Valid: true}
	return nil
}

func (f *fakeRepo) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reward, ok := f.pending[id]
	if !ok || !reward.Claimed {
		return ledger.ErrNotFound
	}
	reward.Claimed = false
	reward.ClaimRecordID = uuid.NullUUID{}
	return nil
}

func (f *fakeRepo) ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var released int64
	for _, reward := range f.pending {
		if reward.Claimed && reward.ClaimRecordID.Valid && reward.ClaimRecordID.UUID == recordID {
			reward.Claimed = false
			reward.ClaimRecordID = uuid.NullUUID{}
			released++
		}
	}
	return released, nil
}

func (f *fakeRepo) CreateClaimRecord(ctx context.Context, record *ledger.ClaimRecord) error {
	return nil
}

func (f *fakeRepo) UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ledger.ClaimStatus, txHash string) error {
	return nil
}

func (f *fakeRepo) GetClaimRecord(ctx context.Context, id uuid.UUID) (*ledger.ClaimRecord, error) {
	return nil, ledger.ErrNotFound
}

func (f *fakeRepo) LastClaimAt(ctx context.Context, wallet string, claimType ledger.ClaimType) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (f *fakeRepo) CountSuccessfulClaims(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeRepo) ListByStatus(ctx context.Context, status ledger.ClaimStatus, olderThan time.Duration, limit int) ([]*ledger.ClaimRecord, error) {
	return nil, nil
}

func (f *fakeRepo) GetBalances(ctx context.Context, userID uuid.UUID) (*ledger.Balances, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balances, ok := f.balances[userID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	copied := *balances
	return &copied, nil
}

func (f *fakeRepo) AddClaimed(ctx context.Context, userID uuid.UUID, amount int64) error {
	return nil
}

func (f *fakeRepo) ResetAll(ctx context.Context, userID, adminID uuid.UUID, reason string) (*ledger.Balances, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balances, ok := f.balances[userID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if f.failAudit {
		// Audit insert failed: transaction rolls back, balances untouched
		return nil, ledger.ErrAuditWriteFailed
	}
	f.audits++
	previous := *balances
	f.balances[userID] = &ledger.Balances{}
	return &previous, nil
}

func TestRecordPendingValidation(t *testing.T) {
	svc := ledger.NewService(newFakeRepo())
	userID := uuid.New()

	_, err := svc.RecordPending(context.Background(), userID, "0xabc", 0, ledger.SourcePlaytime)
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}

	_, err = svc.RecordPending(context.Background(), userID, "0xabc", -5, ledger.SourcePlaytime)
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}

	_, err = svc.RecordPending(context.Background(), userID, "0xabc", 100, ledger.RewardSource("jackpot"))
	if !errors.Is(err, ledger.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}

	reward, err := svc.RecordPending(context.Background(), userID, "0xabc", 100, ledger.SourceUploadBonus)
	if err != nil {
		t.Fatalf("valid record failed: %v", err)
	}
	if reward.Claimed {
		t.Fatal("new pending reward must start unclaimed")
	}
}

func TestRecordPendingLowercasesWallet(t *testing.T) {
	svc := ledger.NewService(newFakeRepo())

	// EIP-55 checksummed form, as browser wallets report addresses. The claim
	// path queries with the lowercase form; a verbatim store would orphan the
	// reward.
	const checksummed = "0x9F7B95B63f68437f9363aF313CbC1D0DBe973638"
	const lowered = "0x9f7b95b63f68437f9363af313cbc1d0dbe973638"

	reward, err := svc.RecordPending(context.Background(), uuid.New(), checksummed, 2500, ledger.SourcePlaytime)
	if err != nil {
		t.Fatalf("record pending: %v", err)
	}
	if reward.Wallet != lowered {
		t.Fatalf("wallet stored as %q, want %q", reward.Wallet, lowered)
	}

	unclaimed, err := svc.ListUnclaimed(context.Background(), lowered)
	if err != nil {
		t.Fatalf("list unclaimed: %v", err)
	}
	if len(unclaimed) != 1 || unclaimed[0].Amount != 2500 {
		t.Fatalf("reward not claimable under lowercase wallet: %+v", unclaimed)
	}
}

func TestMarkClaimedAtMostOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := ledger.NewService(repo)

	reward, err := svc.RecordPending(context.Background(), uuid.New(), "0xabc", 500, ledger.SourcePlaytime)
	if err != nil {
		t.Fatalf("record pending: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.MarkClaimed(context.Background(), reward.ID, uuid.New())
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ledger.ErrAlreadyClaimed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
}

func TestReleaseClaimReopensReward(t *testing.T) {
	repo := newFakeRepo()
	svc := ledger.NewService(repo)

	reward, _ := svc.RecordPending(context.Background(), uuid.New(), "0xabc", 500, ledger.SourcePlaytime)

	recordID := uuid.New()
	if err := svc.MarkClaimed(context.Background(), reward.ID, recordID); err != nil {
		t.Fatalf("mark claimed: %v", err)
	}
	if err := svc.ReleaseClaim(context.Background(), reward.ID); err != nil {
		t.Fatalf("release claim: %v", err)
	}

	// The reward is claimable again after rollback
	if err := svc.MarkClaimed(context.Background(), reward.ID, uuid.New()); err != nil {
		t.Fatalf("mark claimed after release: %v", err)
	}
}

func TestResetAllFailsClosedWithoutAudit(t *testing.T) {
	repo := newFakeRepo()
	svc := ledger.NewService(repo)
	userID := uuid.New()
	repo.balances[userID] = &ledger.Balances{CamlyBalance: 9000, TotalEarned: 12000}

	repo.failAudit = true
	_, err := svc.ResetAll(context.Background(), userID, uuid.New(), "fraud cleanup")
	if !errors.Is(err, ledger.ErrAuditWriteFailed) {
		t.Fatalf("expected ErrAuditWriteFailed, got %v", err)
	}

	balances, _ := svc.GetBalances(context.Background(), userID)
	if balances.CamlyBalance != 9000 {
		t.Fatalf("reset applied despite audit failure: %+v", balances)
	}

	repo.failAudit = false
	previous, err := svc.ResetAll(context.Background(), userID, uuid.New(), "fraud cleanup")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if previous.CamlyBalance != 9000 {
		t.Fatalf("previous snapshot wrong: %+v", previous)
	}
	if repo.audits != 1 {
		t.Fatalf("expected 1 audit entry, got %d", repo.audits)
	}

	balances, _ = svc.GetBalances(context.Background(), userID)
	if balances.CamlyBalance != 0 || balances.TotalEarned != 0 {
		t.Fatalf("balances not zeroed: %+v", balances)
	}
}
