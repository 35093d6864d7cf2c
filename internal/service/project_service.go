package service

import (
	"context"
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
// Project Service
// ============================================

type ProjectService interface {
	Create(ctx context.Context, actorID, ref string, req models.CreateProjectRequest) (*repository.Project, error)
	List(ctx context.Context, actorID, ref string, q models.ListQuery) ([]*repository.Project, error)
	Get(ctx context.Context, actorID, ref, projectID string) (*repository.Project, error)
	Update(ctx context.Context, actorID, ref, projectID string, req models.UpdateProjectRequest) (*repository.Project, error)
	Delete(ctx context.Context, actorID, ref, projectID string) error
}

type projectService struct {
	repos     *repository.Repositories
	scope     *scopeResolver
	publisher EventPublisher
	log       *zap.Logger
}

func NewProjectService(repos *repository.Repositories, scope *scopeResolver, publisher EventPublisher, log *zap.Logger) ProjectService {
	return &projectService{repos: repos, scope: scope, publisher: publisher, log: log}
}

func (s *projectService) Create(ctx context.Context, actorID, ref string, req models.CreateProjectRequest) (*repository.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	project := &repository.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: emptyAsNil(req.Description),
		Status:      types.ProjectStatusBacklog,
		Priority:    0,
		StartDate:   time.Now().UTC(),
		EndDate:     req.EndDate,
	}
	if req.Status != nil {
		project.Status = types.ProjectStatus(*req.Status)
	}
	if req.Priority != nil {
		project.Priority = *req.Priority
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if err := checkProjectDates(project); err != nil {
		return nil, err
	}

	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.workspace(ctx, tx, actorID, ref, types.RoleDeveloper)
		if err != nil {
			return err
		}
		project.WorkspaceID = t.Workspace.ID
		if err := tx.ProjectRepo.Create(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("workspace_id", project.WorkspaceID),
		zap.String("actor_id", actorID),
	)
	s.publisher.BroadcastToWorkspace(project.WorkspaceID, socket.MessageProjectCreated, map[string]interface{}{
		"projectId": project.ID,
		"name":      project.Name,
		"createdBy": actorID,
	})
	return project, nil
}

func (s *projectService) List(ctx context.Context, actorID, ref string, q models.ListQuery) ([]*repository.Project, error) {
	if err := q.ValidateForProjects(); err != nil {
		return nil, err
	}
	t, err := s.scope.workspace(ctx, s.repos, actorID, ref, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	projects, err := s.repos.ProjectRepo.ListByWorkspace(ctx, t.Workspace.ID, repository.ListOptions{Sort: q.Sort, Status: q.Status})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, actorID, ref, projectID string) (*repository.Project, error) {
	t, err := s.scope.project(ctx, s.repos, actorID, ref, projectID, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	return t.Project, nil
}

func (s *projectService) Update(ctx context.Context, actorID, ref, projectID string, req models.UpdateProjectRequest) (*repository.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var project *repository.Project
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.project(ctx, tx, actorID, ref, projectID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		project = t.Project

		if req.Name != nil {
			project.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			project.Description = emptyAsNil(req.Description)
		}
		if req.Status != nil {
			project.Status = types.ProjectStatus(*req.Status)
		}
		if req.Priority != nil {
			project.Priority = *req.Priority
		}
		if req.StartDate != nil {
			project.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			project.EndDate = req.EndDate
		}
		if req.ClearEndDate {
			project.EndDate = nil
		}
		if err := checkProjectDates(project); err != nil {
			return err
		}

		if err := tx.ProjectRepo.Update(ctx, project); err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.BroadcastToWorkspace(project.WorkspaceID, socket.MessageProjectUpdated, map[string]interface{}{
		"projectId": project.ID,
		"updatedBy": actorID,
	})
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, actorID, ref, projectID string) error {
	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.project(ctx, tx, actorID, ref, projectID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		workspaceID = t.Workspace.ID
		if err := tx.ProjectRepo.Delete(ctx, t.Project.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("project deleted",
		zap.String("project_id", projectID),
		zap.String("workspace_id", workspaceID),
		zap.String("actor_id", actorID),
	)
	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageProjectDeleted, map[string]interface{}{
		"projectId": projectID,
		"deletedBy": actorID,
	})
	return nil
}

func checkProjectDates(p *repository.Project) error {
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return apperr.Validation(apperr.Field("endDate", "must not be before startDate"))
	}
	return nil
}

func emptyAsNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
