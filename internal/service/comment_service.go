package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// ============================================
// Comment Service
// ============================================

type CommentService interface {
	Create(ctx context.Context, actorID, ref, projectID, taskID string, req models.CreateCommentRequest) (*repository.TaskComment, error)
	List(ctx context.Context, actorID, ref, projectID, taskID string) ([]*repository.TaskComment, error)
	// Delete is allowed for any admin, or for the author while they hold developer or above.
	Delete(ctx context.Context, actorID, ref, projectID, taskID, commentID string) error
}

type commentService struct {
	repos     *repository.Repositories
	scope     *scopeResolver
	publisher EventPublisher
	log       *zap.Logger
}

func NewCommentService(repos *repository.Repositories, scope *scopeResolver, publisher EventPublisher, log *zap.Logger) CommentService {
	return &commentService{repos: repos, scope: scope, publisher: publisher, log: log}
}

func (s *commentService) Create(ctx context.Context, actorID, ref, projectID, taskID string, req models.CreateCommentRequest) (*repository.TaskComment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	comment := &repository.TaskComment{
		UserID:  &actorID,
		Content: strings.TrimSpace(req.Content),
	}
	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.task(ctx, tx, actorID, ref, projectID, taskID, types.RoleDeveloper)
		if err != nil {
			return err
		}
		workspaceID = t.Workspace.ID
		comment.TaskID = t.Task.ID
		if err := tx.CommentRepo.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		author, err := tx.UserRepo.FindByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("find author: %w", err)
		}
		comment.User = author
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageCommentAdded, map[string]interface{}{
		"commentId": comment.ID,
		"taskId":    comment.TaskID,
		"projectId": projectID,
		"userId":    actorID,
	})
	return comment, nil
}

func (s *commentService) List(ctx context.Context, actorID, ref, projectID, taskID string) ([]*repository.TaskComment, error) {
	t, err := s.scope.task(ctx, s.repos, actorID, ref, projectID, taskID, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	comments, err := s.repos.CommentRepo.ListByTask(ctx, t.Task.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *commentService) Delete(ctx context.Context, actorID, ref, projectID, taskID, commentID string) error {
	var workspaceID string
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		t, err := s.scope.task(ctx, tx, actorID, ref, projectID, taskID, types.RoleViewer)
		if err != nil {
			return err
		}
		workspaceID = t.Workspace.ID

		if !models.IsUUID(commentID) {
			return apperr.NotFound("comment")
		}
		comment, err := tx.CommentRepo.FindByID(ctx, commentID)
		if err != nil {
			return fmt.Errorf("find comment: %w", err)
		}
		if comment == nil || comment.TaskID != t.Task.ID {
			return apperr.NotFound("comment")
		}

		isAuthor := comment.UserID != nil && *comment.UserID == actorID
		if t.Role != types.RoleAdmin && !(isAuthor && t.Role.Satisfies(types.RoleDeveloper)) {
			s.log.Info("comment delete denied",
				zap.String("actor_id", actorID),
				zap.String("comment_id", commentID),
				zap.String("role", t.Role.String()),
				zap.Bool("is_author", isAuthor),
			)
			return apperr.Forbidden("not_author")
		}

		if err := tx.CommentRepo.Delete(ctx, comment.ID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.BroadcastToWorkspace(workspaceID, socket.MessageCommentDeleted, map[string]interface{}{
		"commentId": commentID,
		"taskId":    taskID,
		"deletedBy": actorID,
	})
	return nil
}
