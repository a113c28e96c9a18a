package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/alert"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/pkg/retry"
)

type fakeStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*ledger.ClaimRecord
	released map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[uuid.UUID]*ledger.ClaimRecord),
		released: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) ListByStatus(ctx context.Context, status ledger.ClaimStatus, olderThan time.Duration, limit int) ([]*ledger.ClaimRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []*ledger.ClaimRecord
	for _, rec := range f.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && rec.CreatedAt.After(cutoff) {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeStore) UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ledger.ClaimStatus, txHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return ledger.ErrNotFound
	}
	rec.Status = status
	return nil
}

func (f *fakeStore) ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[recordID] = true
	return 1, nil
}

func (f *fakeStore) status(id uuid.UUID) ledger.ClaimStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

type fakeCaps struct {
	mu       sync.Mutex
	released map[uuid.UUID]int64
}

func (f *fakeCaps) Reserve(ctx context.Context, userID uuid.UUID, ageGroup string, amount int64) error {
	return nil
}

func (f *fakeCaps) Release(ctx context.Context, userID uuid.UUID, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released == nil {
		f.released = make(map[uuid.UUID]int64)
	}
	f.released[userID] += amount
}

func TestExpireStaleReviewsReturnsCapBudget(t *testing.T) {
	store := newFakeStore()
	caps := &fakeCaps{}
	r := &reconciler{
		ledger: store,
		caps:   caps,
		alerts: alert.NewPublisher(nil),
		policy: retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}

	userID := uuid.New()
	stale := &ledger.ClaimRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Wallet:    "0xabc",
		Amount:    60000,
		Status:    ledger.StatusPendingReview,
		CreatedAt: time.Now().Add(-25 * time.Hour),
	}
	fresh := &ledger.ClaimRecord{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Wallet:    "0xdef",
		Amount:    500,
		Status:    ledger.StatusPendingReview,
		CreatedAt: time.Now().Add(-1 * time.Hour),
	}
	store.records[stale.ID] = stale
	store.records[fresh.ID] = fresh

	r.expireStaleReviews(context.Background())

	if store.status(stale.ID) != ledger.StatusRejected {
		t.Fatalf("stale review not rejected: %s", store.status(stale.ID))
	}
	if !store.released[stale.ID] {
		t.Fatal("ledger reservation not released for expired review")
	}
	// The daily cap budget goes back too, same as an in-process rejection
	if caps.released[userID] != 60000 {
		t.Fatalf("cap budget not returned: %d", caps.released[userID])
	}

	if store.status(fresh.ID) != ledger.StatusPendingReview {
		t.Fatalf("fresh review should be untouched: %s", store.status(fresh.ID))
	}
	if caps.released[fresh.UserID] != 0 {
		t.Fatal("cap released for a review still inside the window")
	}
}
