package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// ============================================
// Workspace Service
// ============================================

// WorkspaceService manages workspaces. ref is a workspace id or slug.
type WorkspaceService interface {
	// Create makes the actor owner and sole admin in one transaction.
	Create(ctx context.Context, actorID string, req models.CreateWorkspaceRequest) (*repository.Workspace, error)
	List(ctx context.Context, actorID string, q models.ListWorkspacesQuery) ([]*repository.Workspace, int, error)
	Get(ctx context.Context, actorID, ref string) (*repository.Workspace, types.Role, error)
	Update(ctx context.Context, actorID, ref string, req models.UpdateWorkspaceRequest) (*repository.Workspace, error)
	TouchAccessed(ctx context.Context, actorID, ref string) error
	// Delete removes the workspace with all of its projects, tasks and comments.
	Delete(ctx context.Context, actorID, ref string) (string, error)
}

type workspaceService struct {
	repos     *repository.Repositories
	scope     *scopeResolver
	publisher EventPublisher
	log       *zap.Logger
}

func NewWorkspaceService(repos *repository.Repositories, scope *scopeResolver, publisher EventPublisher, log *zap.Logger) WorkspaceService {
	return &workspaceService{repos: repos, scope: scope, publisher: publisher, log: log}
}

func (s *workspaceService) Create(ctx context.Context, actorID string, req models.CreateWorkspaceRequest) (*repository.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workspace := &repository.Workspace{
		Name:    strings.TrimSpace(req.Name),
		Slug:    req.Slug,
		OwnerID: actorID,
	}

	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		existing, err := tx.WorkspaceRepo.FindBySlug(ctx, workspace.Slug)
		if err != nil {
			return fmt.Errorf("find workspace by slug: %w", err)
		}
		if existing != nil {
			return apperr.Conflict(apperr.ErrSlugTaken)
		}

		if err := tx.WorkspaceRepo.Create(ctx, workspace); err != nil {
			return slugConflict(err)
		}

		return tx.MemberRepo.Add(ctx, &repository.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      actorID,
			Role:        types.RoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("workspace created",
		zap.String("workspace_id", workspace.ID),
		zap.String("slug", workspace.Slug),
		zap.String("owner_id", actorID),
	)
	return workspace, nil
}

func (s *workspaceService) List(ctx context.Context, actorID string, q models.ListWorkspacesQuery) ([]*repository.Workspace, int, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	workspaces, total, err := s.repos.WorkspaceRepo.ListByUser(ctx, actorID, repository.ListOptions{
		Sort:   q.Sort,
		Limit:  q.Limit,
		Offset: q.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list workspaces: %w", err)
	}
	return workspaces, total, nil
}

func (s *workspaceService) Get(ctx context.Context, actorID, ref string) (*repository.Workspace, types.Role, error) {
	t, err := s.scope.workspace(ctx, s.repos, actorID, ref, types.RoleViewer)
	if err != nil {
		return nil, "", err
	}
	return t.Workspace, t.Role, nil
}

func (s *workspaceService) Update(ctx context.Context, actorID, ref string, req models.UpdateWorkspaceRequest) (*repository.Workspace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var workspace *repository.Workspace
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.workspace(ctx, tx, actorID, ref, types.RoleAdmin)
		if err != nil {
			return err
		}
		workspace = t.Workspace

		if req.Name != nil {
			workspace.Name = strings.TrimSpace(*req.Name)
		}
		if req.Slug != nil && *req.Slug != workspace.Slug {
			existing, err := tx.WorkspaceRepo.FindBySlug(ctx, *req.Slug)
			if err != nil {
				return fmt.Errorf("find workspace by slug: %w", err)
			}
			if existing != nil {
				return apperr.Conflict(apperr.ErrSlugTaken)
			}
			workspace.Slug = *req.Slug
		}

		return slugConflict(tx.WorkspaceRepo.Update(ctx, workspace))
	})
	if err != nil {
		return nil, err
	}

	s.publisher.BroadcastToWorkspace(workspace.ID, socket.MessageWorkspaceUpdated, map[string]interface{}{
		"workspaceId": workspace.ID,
		"name":        workspace.Name,
		"slug":        workspace.Slug,
		"updatedBy":   actorID,
	})
	return workspace, nil
}

func (s *workspaceService) TouchAccessed(ctx context.Context, actorID, ref string) error {
	t, err := s.scope.workspace(ctx, s.repos, actorID, ref, types.RoleViewer)
	if err != nil {
		return err
	}
	if err := s.repos.WorkspaceRepo.TouchAccessedAt(ctx, t.Workspace.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("workspace")
		}
		return fmt.Errorf("touch workspace: %w", err)
	}
	return nil
}

func (s *workspaceService) Delete(ctx context.Context, actorID, ref string) (string, error) {
	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		ws, err := findWorkspace(ctx, tx, ref)
		if err != nil {
			return err
		}
		if err := tx.WorkspaceRepo.LockForUpdate(ctx, ws.ID); err != nil {
			return fmt.Errorf("lock workspace: %w", err)
		}
		if _, err := s.scope.perm.Authorize(ctx, tx.MemberRepo, actorID, ws.ID, types.RoleAdmin); err != nil {
			return err
		}
		workspaceID = ws.ID
		return tx.WorkspaceRepo.Delete(ctx, ws.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("workspace")
		}
		return "", err
	}

	s.log.Info("workspace deleted", zap.String("workspace_id", workspaceID), zap.String("actor_id", actorID))
	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageWorkspaceDeleted, map[string]interface{}{
		"workspaceId": workspaceID,
		"deletedBy":   actorID,
	})
	s.publisher.CloseWorkspace(workspaceID)
	return workspaceID, nil
}

// slugConflict maps the store's unique-slug backstop to a Conflict.
func slugConflict(err error) error {
	if repository.IsDuplicate(err, repository.ConstraintWorkspaceSlug) {
		return apperr.Conflict(apperr.ErrSlugTaken)
	}
	return err
}
