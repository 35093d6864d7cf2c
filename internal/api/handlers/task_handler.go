package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Task Handler
// ============================================

type TaskHandler struct {
	taskService service.TaskService
	*responder
}

func (h *TaskHandler) List(c *gin.Context) {
	var q models.ListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if err := q.ValidateForTasks(); err != nil {
		h.fail(c, err)
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"tasks": mapSlice(tasks, toTaskResponse)})
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req models.CreateTaskRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, gin.H{"taskId": task.ID})
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.taskService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), c.Param("taskId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"task": toTaskResponse(task)})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req models.UpdateTaskRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), c.Param("taskId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"task": toTaskResponse(task)})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := h.taskService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("workspace"), c.Param("projectId"), taskID); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"taskId": taskID})
}
