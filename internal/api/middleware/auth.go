package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

const (
	userIDKey = "userID"
	claimsKey = "claims"
)

// AuthMiddleware validates bearer tokens and sets the user id and claims on the context.
func AuthMiddleware(authService service.AuthService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			log.Debug("token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":         false,
		"error":      message,
		"statusCode": http.StatusUnauthorized,
	})
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetClaims returns the access token claims set by AuthMiddleware, or nil.
func GetClaims(c *gin.Context) *service.AccessClaims {
	claims, _ := c.Get(claimsKey)
	ac, _ := claims.(*service.AccessClaims)
	return ac
}
