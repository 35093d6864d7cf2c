package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// target is an authorized position in the workspace → project → task chain.
type target struct {
	Workspace *repository.Workspace
	Project   *repository.Project
	Task      *repository.Task
	Role      types.Role
}

// scopeResolver walks the parent chain top-down. The workspace is resolved
// first (unknown → NotFound), then the actor is authorized against it, then
// each child is loaded and checked against its parent. A child outside the
// chain is reported as NotFound, the same as a missing one.
type scopeResolver struct {
	perm PermissionService
}

func findWorkspace(ctx context.Context, repos *repository.Repositories, ref string) (*repository.Workspace, error) {
	var (
		ws  *repository.Workspace
		err error
	)
	if models.IsUUID(ref) {
		ws, err = repos.WorkspaceRepo.FindByID(ctx, ref)
	} else {
		ws, err = repos.WorkspaceRepo.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("find workspace: %w", err)
	}
	if ws == nil {
		return nil, apperr.NotFound("workspace")
	}
	return ws, nil
}

// workspace resolves a workspace by id or slug and authorizes the actor.
// repos may be transaction-bound.
func (r *scopeResolver) workspace(ctx context.Context, repos *repository.Repositories, actorID, ref string, required types.Role) (*target, error) {
	ws, err := findWorkspace(ctx, repos, ref)
	if err != nil {
		return nil, err
	}
	role, err := r.perm.Authorize(ctx, repos.MemberRepo, actorID, ws.ID, required)
	if err != nil {
		return nil, err
	}
	return &target{Workspace: ws, Role: role}, nil
}

func (r *scopeResolver) project(ctx context.Context, repos *repository.Repositories, actorID, ref, projectID string, required types.Role) (*target, error) {
	t, err := r.workspace(ctx, repos, actorID, ref, required)
	if err != nil {
		return nil, err
	}
	if !models.IsUUID(projectID) {
		return nil, apperr.NotFound("project")
	}
	project, err := repos.ProjectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	if project == nil || project.WorkspaceID != t.Workspace.ID {
		return nil, apperr.NotFound("project")
	}
	t.Project = project
	return t, nil
}

func (r *scopeResolver) task(ctx context.Context, repos *repository.Repositories, actorID, ref, projectID, taskID string, required types.Role) (*target, error) {
	t, err := r.project(ctx, repos, actorID, ref, projectID, required)
	if err != nil {
		return nil, err
	}
	if !models.IsUUID(taskID) {
		return nil, apperr.NotFound("task")
	}
	task, err := repos.TaskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task == nil || task.ProjectID != t.Project.ID {
		return nil, apperr.NotFound("task")
	}
	t.Task = task
	return t, nil
}

// requireAssignee checks that a task assignee belongs to the workspace.
func requireAssignee(ctx context.Context, repos *repository.Repositories, workspaceID string, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	member, err := repos.MemberRepo.Find(ctx, workspaceID, *assigneeID)
	if err != nil {
		return fmt.Errorf("find assignee: %w", err)
	}
	if member == nil {
		return apperr.InvalidAssignee()
	}
	return nil
}
