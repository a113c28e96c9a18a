package alert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitForConnections(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d connections, got %d", want, hub.ConnectionCount())
}

func TestHubBroadcastReachesAllConnections(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	first := &Connection{AdminID: uuid.New(), Send: make(chan []byte, 4)}
	second := &Connection{AdminID: uuid.New(), Send: make(chan []byte, 4)}
	hub.Register(first)
	hub.Register(second)
	waitForConnections(t, hub, 2)

	pub := NewPublisher(hub)
	pub.Alert(context.Background(), "needs_reconcile", "claim abc stuck after transfer")

	for _, conn := range []*Connection{first, second} {
		select {
		case data := <-conn.Send:
			var a Alert
			if err := json.Unmarshal(data, &a); err != nil {
				t.Fatalf("unmarshal alert: %v", err)
			}
			if a.Kind != "needs_reconcile" {
				t.Errorf("expected kind needs_reconcile, got %s", a.Kind)
			}
			if a.ID == uuid.Nil {
				t.Error("alert ID not set")
			}
		case <-time.After(time.Second):
			t.Fatal("alert not delivered")
		}
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	conn := &Connection{AdminID: uuid.New(), Send: make(chan []byte, 1)}
	hub.Register(conn)
	waitForConnections(t, hub, 1)

	hub.Broadcast(&Alert{ID: uuid.New(), Kind: "a", CreatedAt: time.Now()})
	hub.Broadcast(&Alert{ID: uuid.New(), Kind: "b", CreatedAt: time.Now()})

	if got := len(conn.Send); got != 1 {
		t.Errorf("expected 1 buffered alert, got %d", got)
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	conn := &Connection{AdminID: uuid.New(), Send: make(chan []byte, 1)}
	hub.Register(conn)
	waitForConnections(t, hub, 1)

	hub.Unregister(conn)
	waitForConnections(t, hub, 0)

	if _, ok := <-conn.Send; ok {
		t.Error("expected send channel to be closed")
	}
}
