// internal/socket/handler.go
package socket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator resolves an access token to a user id.
type Authenticator func(ctx context.Context, token string) (string, error)

// Handler handles WebSocket connections
type Handler struct {
	Hub          *Hub
	authenticate Authenticator
	authorize    RoomAuthorizer
	upgrader     websocket.Upgrader
	log          *zap.Logger
}

// NewHandler creates a new WebSocket handler. An empty or "*" origin list accepts any origin.
func NewHandler(hub *Hub, authenticate Authenticator, authorize RoomAuthorizer, allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Hub:          hub,
		authenticate: authenticate,
		authorize:    authorize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("websocket"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// HandleWebSocket upgrades an authenticated request. The token comes from the
// query string because browser WebSocket clients cannot set headers.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "no token provided", "statusCode": http.StatusUnauthorized})
		return
	}

	userID, err := h.authenticate(c.Request.Context(), tokenString)
	if err != nil || userID == "" {
		h.log.Debug("websocket token rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token", "statusCode": http.StatusUnauthorized})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := NewClient(h.Hub, userID, conn, h.authorize)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	h.log.Debug("client connected", zap.String("user_id", userID), zap.String("client_id", client.ID))

	go client.WritePump()
	go client.ReadPump()
}
