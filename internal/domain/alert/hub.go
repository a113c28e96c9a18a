package alert

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const alertChannel = "alerts:ops"

var (
	wsConnectionsGauge = expvar.NewInt("alert_ws_connections")
	alertsSentTotal    = expvar.NewInt("alerts_sent_total")
	alertsDroppedTotal = expvar.NewInt("alerts_dropped_total")
)

// Alert is an operational event pushed to connected admins. Delivery is
// best-effort and duplicate-tolerant; consumers dedupe by ID.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection is one admin WebSocket connection.
type Connection struct {
	AdminID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
}

type fanoutMessage struct {
	Alert            *Alert `json:"alert"`
	SenderInstanceID string `json:"sender_instance_id"`
}

// Hub fans alerts out to every connected admin on every instance. Redis
// Pub/Sub carries alerts across instances; local connections are served
// directly.
type Hub struct {
	connections map[*Connection]bool
	redis       *redis.Client
	pubsub      *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates the hub. redisClient may be nil; the hub then serves local
// connections only.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  uuid.NewString(),
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, alertChannel)
	}

	return h
}

// Run starts the hub (call in goroutine).
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("admin_id", conn.AdminID.String()).Msg("Admin connected to alert stream")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
				wsConnectionsGauge.Add(-1)
			}
			h.mu.Unlock()
			log.Debug().Str("admin_id", conn.AdminID.String()).Msg("Admin disconnected from alert stream")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var fanout fanoutMessage
			if err := json.Unmarshal([]byte(msg.Payload), &fanout); err != nil {
				continue
			}
			if fanout.SenderInstanceID == h.instanceID || fanout.Alert == nil {
				continue
			}
			h.broadcastLocal(fanout.Alert)
		}
	}
}

// Broadcast delivers an alert to local connections and publishes it for
// other instances.
func (h *Hub) Broadcast(alert *Alert) {
	h.broadcastLocal(alert)

	if h.redis == nil {
		return
	}

	payload, err := json.Marshal(fanoutMessage{Alert: alert, SenderInstanceID: h.instanceID})
	if err != nil {
		return
	}
	if err := h.redis.Publish(h.ctx, alertChannel, payload).Err(); err != nil {
		log.Error().Err(err).Msg("Alert publish failed")
	}
}

func (h *Hub) broadcastLocal(alert *Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections {
		select {
		case conn.Send <- data:
			alertsSentTotal.Add(1)
		default:
			// Buffer full, skip this alert
			alertsDroppedTotal.Add(1)
			log.Warn().Str("admin_id", conn.AdminID.String()).Msg("Alert send buffer full")
		}
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// ConnectionCount returns the number of local connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown gracefully shuts down the hub.
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
