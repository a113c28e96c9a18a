package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher is the fire-and-forget alert entry point for the rest of the
// service. It logs every alert and pushes it to the hub; it never blocks the
// caller's request path.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) Alert(_ context.Context, kind, message string) {
	a := &Alert{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}

	// The log line is the durable record; the WebSocket stream is for live
	// operators only.
	log.Warn().Str("alert_kind", kind).Str("alert_id", a.ID.String()).Msg(message)

	if p.hub != nil {
		p.hub.Broadcast(a)
	}
}
