// internal/socket/client.go
package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (4KB)
	maxMessageSize int64 = 4096

	// Time allowed for a subscribe authorization lookup
	authorizeWait = 5 * time.Second

	// Clients silent for longer than this are dropped by the hub
	idleTimeout = 2 * pongWait
)

// ClientMessage represents an incoming message from a client
type ClientMessage struct {
	Action  string                 `json:"action"`
	Room    string                 `json:"room,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RoomAuthorizer decides whether a user may read a workspace's events.
type RoomAuthorizer func(ctx context.Context, userID, workspaceID string) error

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, userID string, conn *websocket.Conn, authorize RoomAuthorizer) *Client {
	return &Client{
		ID:        uuid.New().String(),
		UserID:    userID,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan []byte, 256),
		Rooms:     make(map[string]bool),
		authorize: authorize,
		lastPing:  time.Now(),
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}

func (c *Client) lastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("websocket read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			break
		}
		c.HandleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleMessage processes one incoming client frame.
func (c *Client) HandleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Hub.log.Debug("unparseable client message", zap.String("user_id", c.UserID), zap.Error(err))
		c.sendError("invalid message")
		return
	}

	switch msg.Action {
	case "subscribe", "join":
		c.subscribe(msg.Room)

	case "unsubscribe", "leave":
		if msg.Room != "" {
			c.Hub.LeaveRoom(c, msg.Room)
			c.sendAck("unsubscribed", msg.Room)
		}

	case "ping":
		c.touch()
		c.sendPong()

	case "pong":
		c.touch()

	default:
		c.sendError("unknown action")
	}
}

// subscribe joins a workspace room once the user is authorized to read it.
func (c *Client) subscribe(room string) {
	workspaceID, ok := workspaceFromRoom(room)
	if !ok {
		c.sendError("unknown room")
		return
	}
	if c.authorize == nil {
		c.sendError("forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authorizeWait)
	defer cancel()
	if err := c.authorize(ctx, c.UserID, workspaceID); err != nil {
		c.Hub.log.Info("subscribe denied",
			zap.String("user_id", c.UserID),
			zap.String("room", room),
			zap.Error(err),
		)
		c.sendError("forbidden")
		return
	}

	if c.Hub.JoinRoom(c, room) {
		c.sendAck("subscribed", room)
	}
}

func (c *Client) sendAck(action, room string) {
	c.sendSelf(MessageAck, map[string]interface{}{
		"action": action,
		"room":   room,
	})
}

func (c *Client) sendError(reason string) {
	c.sendSelf(MessageError, map[string]interface{}{"error": reason})
}

func (c *Client) sendPong() {
	c.sendSelf(MessagePong, map[string]interface{}{"time": time.Now().Unix()})
}

// sendSelf goes through the hub so it never writes to a closed channel.
func (c *Client) sendSelf(msgType MessageType, payload map[string]interface{}) {
	data, _ := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if !c.Hub.clients[c] {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.Hub.log.Warn("client send buffer full", zap.String("user_id", c.UserID), zap.String("type", string(msgType)))
	}
}
