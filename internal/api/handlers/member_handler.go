package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Member Handler
// ============================================

type MemberHandler struct {
	memberService service.MemberService
	*responder
}

func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.List(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"members": mapSlice(members, toMemberResponse)})
}

func (h *MemberHandler) Add(c *gin.Context) {
	var req models.AddMemberRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	member, err := h.memberService.Add(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, gin.H{"member": toMemberResponse(member)})
}

func (h *MemberHandler) UpdateRole(c *gin.Context) {
	var req models.UpdateMemberRoleRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	member, err := h.memberService.UpdateRole(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("userId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"member": toMemberResponse(member)})
}

func (h *MemberHandler) Remove(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.memberService.Remove(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), userID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"userId": userID})
}
