package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Project Handler
// ============================================

type ProjectHandler struct {
	projectService service.ProjectService
	*responder
}

func (h *ProjectHandler) List(c *gin.Context) {
	var q models.ListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if err := q.ValidateForProjects(); err != nil {
		h.fail(c, err)
		return
	}

	projects, err := h.projectService.List(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"projects": mapSlice(projects, toProjectResponse)})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.CreateProjectRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, gin.H{"projectId": project.ID})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"project": toProjectResponse(project)})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var req models.UpdateProjectRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"project": toProjectResponse(project)})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID := c.Param("projectId")
	if err := h.projectService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), projectID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"projectId": projectID})
}
