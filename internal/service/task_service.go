package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// ============================================
// Task Service
// ============================================

type TaskService interface {
	Create(ctx context.Context, actorID, ref, projectID string, req models.CreateTaskRequest) (*repository.Task, error)
	List(ctx context.Context, actorID, ref, projectID string, q models.ListQuery) ([]*repository.Task, error)
	Get(ctx context.Context, actorID, ref, projectID, taskID string) (*repository.Task, error)
	Update(ctx context.Context, actorID, ref, projectID, taskID string, req models.UpdateTaskRequest) (*repository.Task, error)
	Delete(ctx context.Context, actorID, ref, projectID, taskID string) error
}

type taskService struct {
	repos     *repository.Repositories
	scope     *scopeResolver
	publisher EventPublisher
	log       *zap.Logger
}

func NewTaskService(repos *repository.Repositories, scope *scopeResolver, publisher EventPublisher, log *zap.Logger) TaskService {
	return &taskService{repos: repos, scope: scope, publisher: publisher, log: log}
}

func (s *taskService) Create(ctx context.Context, actorID, ref, projectID string, req models.CreateTaskRequest) (*repository.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := &repository.Task{
		Name:        strings.TrimSpace(req.Name),
		Description: emptyAsNil(req.Description),
		AssigneeID:  emptyAsNil(req.AssigneeID),
		Status:      types.TaskStatusTodo,
		Priority:    0,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		task.Status = types.TaskStatus(*req.Status)
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}

	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.project(ctx, tx, actorID, ref, projectID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		workspaceID = t.Workspace.ID
		if err := requireAssignee(ctx, tx, workspaceID, task.AssigneeID); err != nil {
			return err
		}
		task.ProjectID = t.Project.ID
		if err := tx.TaskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("project_id", task.ProjectID),
		zap.String("actor_id", actorID),
	)
	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageTaskCreated, map[string]interface{}{
		"taskId":     task.ID,
		"projectId":  task.ProjectID,
		"name":       task.Name,
		"assigneeId": task.AssigneeID,
		"createdBy":  actorID,
	})
	return task, nil
}

func (s *taskService) List(ctx context.Context, actorID, ref, projectID string, q models.ListQuery) ([]*repository.Task, error) {
	if err := q.ValidateForTasks(); err != nil {
		return nil, err
	}
	t, err := s.scope.project(ctx, s.repos, actorID, ref, projectID, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repos.TaskRepo.ListByProject(ctx, t.Project.ID, repository.ListOptions{Sort: q.Sort, Status: q.Status})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, actorID, ref, projectID, taskID string) (*repository.Task, error) {
	t, err := s.scope.task(ctx, s.repos, actorID, ref, projectID, taskID, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	return t.Task, nil
}

func (s *taskService) Update(ctx context.Context, actorID, ref, projectID, taskID string, req models.UpdateTaskRequest) (*repository.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		task        *repository.Task
		workspaceID string
	)
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.task(ctx, tx, actorID, ref, projectID, taskID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		task, workspaceID = t.Task, t.Workspace.ID

		if req.Name != nil {
			task.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			task.Description = emptyAsNil(req.Description)
		}
		if req.Status != nil {
			task.Status = types.TaskStatus(*req.Status)
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}
		if req.DueDate != nil {
			task.DueDate = req.DueDate
		}
		if req.AssigneeID != nil {
			task.AssigneeID = emptyAsNil(req.AssigneeID)
			if err := requireAssignee(ctx, tx, workspaceID, task.AssigneeID); err != nil {
				return err
			}
		}

		if err := tx.TaskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageTaskUpdated, map[string]interface{}{
		"taskId":    task.ID,
		"projectId": task.ProjectID,
		"status":    task.Status,
		"updatedBy": actorID,
	})
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, actorID, ref, projectID, taskID string) error {
	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.task(ctx, tx, actorID, ref, projectID, taskID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		workspaceID = t.Workspace.ID
		if err := tx.TaskRepo.Delete(ctx, t.Task.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageTaskDeleted, map[string]interface{}{
		"taskId":    taskID,
		"projectId": projectID,
		"deletedBy": actorID,
	})
	return nil
}
