package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-workspaces/internal/api/middleware"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// ============================================
// Comment Handler
// ============================================

type CommentHandler struct {
	commentService service.CommentService
	*responder
}

func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.commentService.List(c.Request.Context(), middleware.GetUserID(c),
		c.Param("workspace"), c.Param("projectId"), c.Param("taskId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"comments": mapSlice(comments, toCommentResponse)})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req models.CreateCommentRequest
	if !h.bind(c, &req) || !h.check(c, &req) {
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), middleware.GetUserID(c),
		c.Param("workspace"), c.Param("projectId"), c.Param("taskId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, gin.H{"comment": toCommentResponse(comment)})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	commentID := c.Param("commentId")
	err := h.commentService.Delete(c.Request.Context(), middleware.GetUserID(c),
		c.Param("workspace"), c.Param("projectId"), c.Param("taskId"), commentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"commentId": commentID})
}
