package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait (seconds) drive the heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// ParticipantChangeHandler is called when a session's connected participant
// count changes (e.g. for peak tracking).
type ParticipantChangeHandler func(sessionID uuid.UUID, count int)

// ParticipantLogger records joins and leaves for the attendee log.
type ParticipantLogger func(sessionID uuid.UUID, participantID *uuid.UUID)

// Hub maintains session_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish.
// Published events carry the hub's instance id so the subscriber can skip
// messages this instance already delivered locally.
type Hub struct {
	// id identifies this hub instance in published events.
	id string
	// sessionID -> map[clientID]*Client
	sessions map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per session
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber

	onParticipants ParticipantChangeHandler
	onJoin         ParticipantLogger
	onLeave        ParticipantLogger
}

// RedisPublisher publishes session events for cross-instance broadcast.
// origin is the publishing hub's instance id.
type RedisPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, origin, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for
// incoming events, passing through the publisher's origin id.
type RedisSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(origin, event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		id:       uuid.NewString(),
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetParticipantChangeHandler sets the callback for participant count changes.
func (h *Hub) SetParticipantChangeHandler(fn ParticipantChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onParticipants = fn
}

// SetParticipantLogger sets join/leave callbacks for the attendee log.
func (h *Hub) SetParticipantLogger(onJoin, onLeave ParticipantLogger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin, h.onLeave = onJoin, onLeave
}

// Register adds a client to a session room. Starts the Redis subscription
// for this session when the first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(c.SessionID, func(origin, event string, payload []byte) {
				// This instance already delivered its own events locally.
				if origin == h.id {
					return
				}
				h.BroadcastToSession(c.SessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.SessionID] = cancel
			}
		}
	}
	h.sessions[c.SessionID][c.ID] = c
	count := len(h.sessions[c.SessionID])
	onParticipants, onJoin := h.onParticipants, h.onJoin
	h.mu.Unlock()

	if onParticipants != nil {
		onParticipants(c.SessionID, count)
	}
	if onJoin != nil {
		onJoin(c.SessionID, c.ParticipantID)
	}
	h.logger.Debug("client joined session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Unregister removes a client from a session room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.sessions[c.SessionID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	onParticipants, onLeave := h.onParticipants, h.onLeave
	h.mu.Unlock()

	if onParticipants != nil && count > 0 {
		onParticipants(c.SessionID, count)
	}
	if onLeave != nil {
		onLeave(c.SessionID, c.ParticipantID)
	}
	h.logger.Debug("client left session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// BroadcastToSession sends a message to all clients in a session (local only).
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot the room under the read lock; Register/Unregister mutate the
	// inner map, so it must not be iterated after unlocking.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToSessionAndPublish sends to local clients and publishes to Redis
// for other instances. The published event carries this hub's instance id,
// and the subscriber drops self-originated messages, so local clients see
// each event exactly once.
func (h *Hub) BroadcastToSessionAndPublish(sessionID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToSession(sessionID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, h.id, event, data)
	}
}

// ParticipantCount returns the number of connected clients in a session.
func (h *Hub) ParticipantCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
