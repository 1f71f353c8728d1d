package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in a session room.
// Presenters connect with a JWT; participants connect anonymously with an
// optional client-generated participant id.
type Client struct {
	ID            string
	SessionID     uuid.UUID
	ParticipantID *uuid.UUID // nil for fully anonymous participants
	Role          string     // "presenter", "admin" or "participant"
	JoinedAt      time.Time
	hub           *Hub
	conn          *websocket.Conn
	send          chan WSMessage
	logger        *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. A valid
// token upgrades the connection's role; without one the client is an
// anonymous participant.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionIDStr := c.Query("session_id")
		if sessionIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
			return
		}
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}

		role := "participant"
		var participantID *uuid.UUID
		if token := c.Query("token"); token != "" {
			userIDStr, userRole, err := jwtValidate(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			role = userRole
			if userID, err := uuid.Parse(userIDStr); err == nil {
				participantID = &userID
			}
		} else if pid := c.Query("participant_id"); pid != "" {
			if id, err := uuid.Parse(pid); err == nil {
				participantID = &id
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:            uuid.New().String(),
			SessionID:     sessionID,
			ParticipantID: participantID,
			Role:          role,
			JoinedAt:      time.Now(),
			hub:           hub,
			conn:          conn,
			send:          make(chan WSMessage, 256),
			logger:        logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.BroadcastToSessionAndPublish(c.SessionID, "participant_count", map[string]int{
				"count": c.hub.ParticipantCount(c.SessionID),
			})
		case "reaction":
			// Participant-originated; fans out like any other session event.
			c.hub.BroadcastToSessionAndPublish(c.SessionID, msg.Event, json.RawMessage(msg.Data))
		default:
			// All poll/question events originate from HTTP handlers, not
			// from the socket. Ignore everything else.
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
