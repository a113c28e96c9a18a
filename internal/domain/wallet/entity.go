package wallet

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventConnect    EventType = "connect"
	EventChange     EventType = "change"
	EventDisconnect EventType = "disconnect"
)

// Event is one entry in a user's wallet link history. The history is
// append-only; the current link state is always derived from the latest
// event, never stored separately.
type Event struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Address   string    `db:"address" json:"address"`
	Event     EventType `db:"event" json:"event"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
