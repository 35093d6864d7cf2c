package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Auth Handler
// ============================================

type AuthHandler struct {
	authService service.AuthService
	*responder
}

func toAuthResponse(s *service.Session) models.AuthResponse {
	return models.AuthResponse{
		User:         toUserResponse(s.User),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    int64(s.ExpiresIn.Seconds()),
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	session, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, toAuthResponse(session))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, toAuthResponse(session))
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	session, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, toAuthResponse(session))
}

// Logout accepts an optional body carrying the refresh token to delete.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), middleware.GetClaims(c), req.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"success": true})
}
