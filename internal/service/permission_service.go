package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// Deny reasons. Logged, never returned to callers.
const (
	DenyNotMember        = "not_member"
	DenyInsufficientRole = "insufficient_role"
)

// Decision is the outcome of a single authorization check.
type Decision struct {
	Allowed bool
	Role    types.Role
	Reason  string
}

// Decide evaluates a membership row (nil when absent) against a threshold.
func Decide(member *repository.WorkspaceMember, required types.Role) Decision {
	if member == nil {
		return Decision{Reason: DenyNotMember}
	}
	if !member.Role.Satisfies(required) {
		return Decision{Role: member.Role, Reason: DenyInsufficientRole}
	}
	return Decision{Allowed: true, Role: member.Role}
}

// ============================================
// Permission Service
// ============================================

type PermissionService interface {
	// Authorize looks the actor's role up on every call and returns it when
	// it meets required. Denials surface as a single Forbidden error.
	Authorize(ctx context.Context, members repository.MemberRepository, actorID, workspaceID string, required types.Role) (types.Role, error)
}

type permissionService struct {
	log *zap.Logger
}

func NewPermissionService(log *zap.Logger) PermissionService {
	return &permissionService{log: log}
}

func (s *permissionService) Authorize(ctx context.Context, members repository.MemberRepository, actorID, workspaceID string, required types.Role) (types.Role, error) {
	member, err := members.Find(ctx, workspaceID, actorID)
	if err != nil {
		return "", fmt.Errorf("find member: %w", err)
	}

	decision := Decide(member, required)
	if !decision.Allowed {
		s.log.Info("authorization denied",
			zap.String("actor_id", actorID),
			zap.String("workspace_id", workspaceID),
			zap.String("required_role", required.String()),
			zap.String("actual_role", decision.Role.String()),
			zap.String("reason", decision.Reason),
		)
		return "", apperr.Forbidden(decision.Reason)
	}
	return decision.Role, nil
}
