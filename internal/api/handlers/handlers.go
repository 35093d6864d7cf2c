package handlers

import (
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Workspace *WorkspaceHandler
	Member    *MemberHandler
	Project   *ProjectHandler
	Task      *TaskHandler
	Comment   *CommentHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	r := &responder{log: log}
	return &Handlers{
		Auth:      &AuthHandler{authService: services.Auth, responder: r},
		User:      &UserHandler{userService: services.User, responder: r},
		Workspace: &WorkspaceHandler{workspaceService: services.Workspace, responder: r},
		Member:    &MemberHandler{memberService: services.Member, responder: r},
		Project:   &ProjectHandler{projectService: services.Project, responder: r},
		Task:      &TaskHandler{taskService: services.Task, responder: r},
		Comment:   &CommentHandler{commentService: services.Comment, responder: r},
	}
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
	}
}

func toWorkspaceResponse(ws *repository.Workspace) models.WorkspaceResponse {
	return models.WorkspaceResponse{
		ID:         ws.ID,
		Name:       ws.Name,
		Slug:       ws.Slug,
		OwnerID:    ws.OwnerID,
		CreatedAt:  ws.CreatedAt,
		UpdatedAt:  ws.UpdatedAt,
		AccessedAt: ws.AccessedAt,
	}
}

func toMemberResponse(m *repository.WorkspaceMember) models.MemberResponse {
	resp := models.MemberResponse{
		UserID:  m.UserID,
		Role:    m.Role.String(),
		AddedAt: m.AddedAt,
	}
	if m.User != nil {
		resp.Name = m.User.Name
		resp.Email = m.User.Email
		resp.Image = m.User.Image
	}
	return resp
}

func toProjectResponse(p *repository.Project) models.ProjectResponse {
	return models.ProjectResponse{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Priority:    p.Priority,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toTaskResponse(t *repository.Task) models.TaskResponse {
	return models.TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Name:        t.Name,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toCommentResponse(c *repository.TaskComment) models.CommentResponse {
	resp := models.CommentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if c.User != nil {
		resp.Author = &models.UserSummary{ID: c.User.ID, Name: c.User.Name, Image: c.User.Image}
	}
	return resp
}

// mapSlice converts a slice, keeping empty results as [] in JSON.
func mapSlice[T any, R any](items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}
