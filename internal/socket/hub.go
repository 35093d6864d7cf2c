// internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Workspace messages
	MessageWorkspaceUpdated MessageType = "workspace_updated"
	MessageWorkspaceDeleted MessageType = "workspace_deleted"

	// Member messages
	MessageMemberAdded       MessageType = "member_added"
	MessageMemberRemoved     MessageType = "member_removed"
	MessageMemberRoleUpdated MessageType = "member_role_updated"

	// Project messages
	MessageProjectCreated MessageType = "project_created"
	MessageProjectUpdated MessageType = "project_updated"
	MessageProjectDeleted MessageType = "project_deleted"

	// Task messages
	MessageTaskCreated MessageType = "task_created"
	MessageTaskUpdated MessageType = "task_updated"
	MessageTaskDeleted MessageType = "task_deleted"

	// Comment messages
	MessageCommentAdded   MessageType = "comment_added"
	MessageCommentDeleted MessageType = "comment_deleted"

	// System messages
	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

const workspaceRoomPrefix = "workspace:"

// WorkspaceRoom returns the room name that carries a workspace's events.
func WorkspaceRoom(workspaceID string) string {
	return workspaceRoomPrefix + workspaceID
}

// workspaceFromRoom returns the workspace id of a workspace room.
func workspaceFromRoom(room string) (string, bool) {
	id := strings.TrimPrefix(room, workspaceRoomPrefix)
	if id == room || id == "" {
		return "", false
	}
	return id, true
}

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte
	// Rooms is guarded by the hub lock.
	Rooms     map[string]bool
	authorize RoomAuthorizer
	mu        sync.Mutex
	lastPing  time.Time
}

// Hub maintains the set of active clients and fans messages out to rooms.
type Hub struct {
	clients     map[*Client]bool
	roomClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *zap.Logger
	mu  sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		roomClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client, 64),
		done:        make(chan struct{}),
		log:         log.Named("hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("websocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.log.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-pingTicker.C:
			h.PruneIdle(time.Now().Add(-idleTimeout))
			h.pingClients()
		}
	}
}

// Register hands a client to the running hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.log.Debug("client registered",
		zap.String("user_id", client.UserID),
		zap.String("client_id", client.ID),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for room := range client.Rooms {
		h.dropFromRoom(client, room)
	}

	close(client.Send)
	h.log.Debug("client disconnected",
		zap.String("user_id", client.UserID),
		zap.String("client_id", client.ID),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.roomClients = make(map[string]map[*Client]bool)
}

// dropFromRoom requires h.mu held for writing.
func (h *Hub) dropFromRoom(client *Client, room string) {
	delete(client.Rooms, room)
	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// deliver requires h.mu held. A client whose buffer is full is disconnected.
func (h *Hub) deliver(client *Client, data []byte) bool {
	select {
	case client.Send <- data:
		return true
	default:
		go h.Unregister(client)
		return false
	}
}

// PruneIdle disconnects clients whose last ping or pong predates cutoff.
func (h *Hub) PruneIdle(cutoff time.Time) int {
	h.mu.RLock()
	var idle []*Client
	for client := range h.clients {
		if client.lastSeen().Before(cutoff) {
			idle = append(idle, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range idle {
		h.log.Debug("dropping idle client", zap.String("user_id", client.UserID), zap.String("client_id", client.ID))
		h.unregisterClient(client)
	}
	return len(idle)
}

func (h *Hub) pingClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})
	for client := range h.clients {
		h.deliver(client, data)
	}
}

// ============================================
// Room Management
// ============================================

// JoinRoom adds a registered client to a room.
func (h *Hub) JoinRoom(client *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}
	client.Rooms[room] = true
	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true

	h.log.Debug("client joined room", zap.String("user_id", client.UserID), zap.String("room", room))
	return true
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropFromRoom(client, room)
	h.log.Debug("client left room", zap.String("user_id", client.UserID), zap.String("room", room))
}

// RemoveUserFromRoom drops every connection of a user from a room.
func (h *Hub) RemoveUserFromRoom(room, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.roomClients[room] {
		if client.UserID == userID {
			h.dropFromRoom(client, room)
		}
	}
}

// CloseRoom drops every subscriber of a room.
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.roomClients[room] {
		delete(client.Rooms, room)
	}
	delete(h.roomClients, room)
}

// ============================================
// Sending
// ============================================

// SendToRoom delivers a message to every client in a room, skipping excludeUserID.
// Delivery happens before return so a following room change cannot overtake it.
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeUserID string) int {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		h.log.Error("failed to marshal message", zap.String("type", string(msgType)), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.roomClients[room] {
		if excludeUserID != "" && client.UserID == excludeUserID {
			continue
		}
		if h.deliver(client, data) {
			sent++
		}
	}
	h.log.Debug("broadcast to room", zap.String("room", room), zap.String("type", string(msgType)), zap.Int("sent", sent))
	return sent
}

// ============================================
// Query Methods
// ============================================

// GetRoomClients returns the number of clients in a room
func (h *Hub) GetRoomClients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

// GetConnectedClientsCount returns total connected clients
func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
