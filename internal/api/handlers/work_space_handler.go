package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Workspace Handler
// ============================================

// WorkspaceHandler serves /workspaces. The :workspace parameter is an id or a slug.
type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
	*responder
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	var q models.ListWorkspacesQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Normalize()
	if !h.check(c, &q) {
		return
	}

	workspaces, total, err := h.workspaceService.List(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.ok(c, http.StatusOK, models.WorkspaceListResponse{
		Workspaces: mapSlice(workspaces, toWorkspaceResponse),
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
	})
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req models.CreateWorkspaceRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	workspace, err := h.workspaceService.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, gin.H{"workspaceId": workspace.ID})
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	workspace, role, err := h.workspaceService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := toWorkspaceResponse(workspace)
	resp.Role = role.String()
	h.ok(c, http.StatusOK, gin.H{"workspace": resp})
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	var req models.UpdateWorkspaceRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	workspace, err := h.workspaceService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"workspace": toWorkspaceResponse(workspace)})
}

func (h *WorkspaceHandler) TouchAccessed(c *gin.Context) {
	if err := h.workspaceService.TouchAccessed(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace")); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	id, err := h.workspaceService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"workspaceId": id})
}
