package wallet_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/funplanet/claim-api/internal/domain/wallet"
)

type fakeRepo struct {
	mu     sync.Mutex
	events []*wallet.Event
}

func (f *fakeRepo) AppendEvent(_ context.Context, event *wallet.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) LatestEvent(_ context.Context, userID uuid.UUID) (*wallet.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].UserID == userID {
			return f.events[i], nil
		}
	}
	return nil, wallet.ErrNoWallet
}

func (f *fakeRepo) History(_ context.Context, userID uuid.UUID) ([]*wallet.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*wallet.Event
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) ActiveOwner(_ context.Context, address string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[uuid.UUID]*wallet.Event)
	for _, e := range f.events {
		latest[e.UserID] = e
	}
	for userID, e := range latest {
		if e.Address == address && e.Event != wallet.EventDisconnect {
			return userID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestConnectAndActiveWallet(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})
	userID := uuid.New()

	event, err := svc.Connect(context.Background(), userID, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if event.Event != wallet.EventConnect {
		t.Errorf("expected connect event, got %s", event.Event)
	}
	if event.Address != addrA {
		t.Errorf("address not lowercased: %s", event.Address)
	}

	active, err := svc.ActiveWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("ActiveWallet: %v", err)
	}
	if active != addrA {
		t.Errorf("expected %s, got %s", addrA, active)
	}
}

func TestConnectInvalidAddress(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})

	_, err := svc.Connect(context.Background(), uuid.New(), "not-an-address")
	if !errors.Is(err, wallet.ErrInvalidWallet) {
		t.Errorf("expected ErrInvalidWallet, got %v", err)
	}
}

func TestConnectSameWallet(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})
	userID := uuid.New()

	if _, err := svc.Connect(context.Background(), userID, addrA); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := svc.Connect(context.Background(), userID, addrA)
	if !errors.Is(err, wallet.ErrSameWallet) {
		t.Errorf("expected ErrSameWallet, got %v", err)
	}
}

func TestConnectChangeKeepsHistory(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})
	userID := uuid.New()

	if _, err := svc.Connect(context.Background(), userID, addrA); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	event, err := svc.Connect(context.Background(), userID, addrB)
	if err != nil {
		t.Fatalf("Connect change: %v", err)
	}
	if event.Event != wallet.EventChange {
		t.Errorf("expected change event, got %s", event.Event)
	}

	active, err := svc.ActiveWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("ActiveWallet: %v", err)
	}
	if active != addrB {
		t.Errorf("expected %s active, got %s", addrB, active)
	}

	history, err := svc.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
}

func TestConnectTakenByOtherUser(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})

	if _, err := svc.Connect(context.Background(), uuid.New(), addrA); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := svc.Connect(context.Background(), uuid.New(), addrA)
	if !errors.Is(err, wallet.ErrWalletTaken) {
		t.Errorf("expected ErrWalletTaken, got %v", err)
	}
}

func TestDisconnectFreesAddressForOthers(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})
	first := uuid.New()
	second := uuid.New()

	if _, err := svc.Connect(context.Background(), first, addrA); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := svc.Disconnect(context.Background(), first); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if _, err := svc.ActiveWallet(context.Background(), first); !errors.Is(err, wallet.ErrNoWallet) {
		t.Errorf("expected ErrNoWallet after disconnect, got %v", err)
	}
	if _, err := svc.Connect(context.Background(), second, addrA); err != nil {
		t.Errorf("expected address to be free after disconnect, got %v", err)
	}
}

func TestDisconnectWithoutWallet(t *testing.T) {
	svc := wallet.NewService(&fakeRepo{})

	err := svc.Disconnect(context.Background(), uuid.New())
	if !errors.Is(err, wallet.ErrNoWallet) {
		t.Errorf("expected ErrNoWallet, got %v", err)
	}

	userID := uuid.New()
	if _, err := svc.Connect(context.Background(), userID, addrA); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := svc.Disconnect(context.Background(), userID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := svc.Disconnect(context.Background(), userID); !errors.Is(err, wallet.ErrNoWallet) {
		t.Errorf("expected ErrNoWallet on double disconnect, got %v", err)
	}
}
