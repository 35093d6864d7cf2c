package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/config"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// ============================================
// Member Service
// ============================================

// MemberService manages workspace membership. Every mutation is admin only
// and runs in one transaction that first locks the workspace row, so the
// last-admin check and the write it guards cannot interleave with another
// membership change on the same workspace.
type MemberService interface {
	List(ctx context.Context, actorID, ref string) ([]*repository.WorkspaceMember, error)
	Add(ctx context.Context, actorID, ref string, req models.AddMemberRequest) (*repository.WorkspaceMember, error)
	UpdateRole(ctx context.Context, actorID, ref, userID string, req models.UpdateMemberRoleRequest) (*repository.WorkspaceMember, error)
	Remove(ctx context.Context, actorID, ref, userID string) error
}

type memberService struct {
	repos     *repository.Repositories
	scope     *scopeResolver
	publisher EventPublisher
	notifier  MemberNotifier
	cfg       *config.Config
	log       *zap.Logger
}

func NewMemberService(
	repos *repository.Repositories,
	scope *scopeResolver,
	publisher EventPublisher,
	notifier MemberNotifier,
	cfg *config.Config,
	log *zap.Logger,
) MemberService {
	return &memberService{
		repos:     repos,
		scope:     scope,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

func (s *memberService) List(ctx context.Context, actorID, ref string) ([]*repository.WorkspaceMember, error) {
	t, err := s.scope.workspace(ctx, s.repos, actorID, ref, types.RoleViewer)
	if err != nil {
		return nil, err
	}
	members, err := s.repos.MemberRepo.List(ctx, t.Workspace.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// lockAsAdmin resolves the workspace, locks its row, then authorizes the actor as admin.
func (s *memberService) lockAsAdmin(ctx context.Context, tx *repository.Repositories, actorID, ref string) (*repository.Workspace, error) {
	ws, err := findWorkspace(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	if err := tx.WorkspaceRepo.LockForUpdate(ctx, ws.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("workspace")
		}
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if _, err := s.scope.perm.Authorize(ctx, tx.MemberRepo, actorID, ws.ID, types.RoleAdmin); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *memberService) Add(ctx context.Context, actorID, ref string, req models.AddMemberRequest) (*repository.WorkspaceMember, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	role, _ := types.ParseRole(req.Role)

	var (
		workspace *repository.Workspace
		member    *repository.WorkspaceMember
	)
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		ws, err := s.lockAsAdmin(ctx, tx, actorID, ref)
		if err != nil {
			return err
		}
		workspace = ws

		var user *repository.User
		if req.UserID != "" {
			user, err = tx.UserRepo.FindByID(ctx, req.UserID)
		} else {
			user, err = tx.UserRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
		}
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return apperr.NotFound("user")
		}

		existing, err := tx.MemberRepo.Find(ctx, ws.ID, user.ID)
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		if existing != nil {
			return apperr.Conflict(apperr.ErrAlreadyMember)
		}

		member = &repository.WorkspaceMember{WorkspaceID: ws.ID, UserID: user.ID, Role: role, User: user}
		if err := tx.MemberRepo.Add(ctx, member); err != nil {
			if repository.IsDuplicate(err, repository.ConstraintMemberPair) {
				return apperr.Conflict(apperr.ErrAlreadyMember)
			}
			return fmt.Errorf("add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member added",
		zap.String("workspace_id", workspace.ID),
		zap.String("user_id", member.UserID),
		zap.String("role", role.String()),
		zap.String("actor_id", actorID),
	)
	s.publisher.BroadcastToWorkspace(workspace.ID, socket.MessageMemberAdded, map[string]interface{}{
		"workspaceId": workspace.ID,
		"userId":      member.UserID,
		"role":        role,
		"addedBy":     actorID,
	})
	s.notifyAdded(ctx, workspace, member, actorID)
	return member, nil
}

func (s *memberService) notifyAdded(ctx context.Context, workspace *repository.Workspace, member *repository.WorkspaceMember, actorID string) {
	if s.notifier == nil || member.User == nil {
		return
	}
	inviterName := "A workspace admin"
	if inviter, err := s.repos.UserRepo.FindByID(ctx, actorID); err == nil && inviter != nil {
		inviterName = inviter.Name
	}
	workspaceURL := ""
	if s.cfg != nil {
		workspaceURL = strings.TrimRight(s.cfg.FrontendURL, "/") + "/workspaces/" + workspace.Slug
	}
	to, name, wsName := member.User.Email, member.User.Name, workspace.Name

	go func() {
		if err := s.notifier.SendWorkspaceMemberAdded(to, name, wsName, inviterName, workspaceURL); err != nil {
			s.log.Warn("failed to send member added email",
				zap.String("workspace_id", workspace.ID),
				zap.String("user_id", member.UserID),
				zap.Error(err),
			)
		}
	}()
}

func (s *memberService) UpdateRole(ctx context.Context, actorID, ref, userID string, req models.UpdateMemberRoleRequest) (*repository.WorkspaceMember, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	newRole, _ := types.ParseRole(req.Role)

	var (
		workspace *repository.Workspace
		member    *repository.WorkspaceMember
		oldRole   types.Role
	)
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		ws, err := s.lockAsAdmin(ctx, tx, actorID, ref)
		if err != nil {
			return err
		}
		workspace = ws

		target, err := s.findTarget(ctx, tx, ws.ID, userID)
		if err != nil {
			return err
		}
		oldRole = target.Role
		if target.Role == types.RoleAdmin && newRole != types.RoleAdmin {
			if err := s.guardLastAdmin(ctx, tx, ws.ID); err != nil {
				return err
			}
			if err := guardOwner(ws, target.UserID); err != nil {
				return err
			}
		}

		if err := tx.MemberRepo.UpdateRole(ctx, ws.ID, target.UserID, newRole); err != nil {
			return fmt.Errorf("update member role: %w", err)
		}
		target.Role = newRole
		member = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member role updated",
		zap.String("workspace_id", workspace.ID),
		zap.String("user_id", member.UserID),
		zap.String("old_role", oldRole.String()),
		zap.String("new_role", newRole.String()),
		zap.String("actor_id", actorID),
	)
	s.publisher.BroadcastToWorkspace(workspace.ID, socket.MessageMemberRoleUpdated, map[string]interface{}{
		"workspaceId": workspace.ID,
		"userId":      member.UserID,
		"oldRole":     oldRole,
		"newRole":     newRole,
		"updatedBy":   actorID,
	})
	return member, nil
}

func (s *memberService) Remove(ctx context.Context, actorID, ref, userID string) error {
	var (
		workspace  *repository.Workspace
		unassigned int64
	)
	err := s.repos.WithTx(ctx, func(tx *repository.Repositories) error {
		ws, err := s.lockAsAdmin(ctx, tx, actorID, ref)
		if err != nil {
			return err
		}
		workspace = ws

		target, err := s.findTarget(ctx, tx, ws.ID, userID)
		if err != nil {
			return err
		}
		if target.Role == types.RoleAdmin {
			if err := s.guardLastAdmin(ctx, tx, ws.ID); err != nil {
				return err
			}
		}
		if err := guardOwner(ws, target.UserID); err != nil {
			return err
		}

		if err := tx.MemberRepo.Remove(ctx, ws.ID, target.UserID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		unassigned, err = tx.TaskRepo.UnassignInWorkspace(ctx, ws.ID, target.UserID)
		if err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("member removed",
		zap.String("workspace_id", workspace.ID),
		zap.String("user_id", userID),
		zap.String("actor_id", actorID),
		zap.Int64("tasks_unassigned", unassigned),
	)
	s.publisher.BroadcastToWorkspace(workspace.ID, socket.MessageMemberRemoved, map[string]interface{}{
		"workspaceId": workspace.ID,
		"userId":      userID,
		"removedBy":   actorID,
		"unassigned":  unassigned,
	})
	s.publisher.DetachUser(workspace.ID, userID)
	return nil
}

func (s *memberService) findTarget(ctx context.Context, tx *repository.Repositories, workspaceID, userID string) (*repository.WorkspaceMember, error) {
	if !models.IsUUID(userID) {
		return nil, apperr.NotFound("member")
	}
	target, err := tx.MemberRepo.Find(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if target == nil {
		return nil, apperr.NotFound("member")
	}
	return target, nil
}

// guardOwner refuses demoting or removing the workspace owner.
func guardOwner(ws *repository.Workspace, userID string) error {
	if ws.OwnerID == userID {
		return apperr.Conflict(apperr.ErrOwnerImmutable)
	}
	return nil
}

// guardLastAdmin refuses a change that would leave the workspace without an admin.
// Callers hold the workspace row lock.
func (s *memberService) guardLastAdmin(ctx context.Context, tx *repository.Repositories, workspaceID string) error {
	admins, err := tx.MemberRepo.CountAdmins(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return apperr.Conflict(apperr.ErrLastAdmin)
	}
	return nil
}
