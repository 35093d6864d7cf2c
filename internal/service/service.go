package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/config"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// EventPublisher fans workspace events out to realtime subscribers.
type EventPublisher interface {
	BroadcastToWorkspace(workspaceID string, msgType socket.MessageType, payload map[string]interface{})
	// DetachUser drops a user's subscription to a workspace room.
	DetachUser(workspaceID, userID string)
	// CloseWorkspace drops every subscription to a workspace room.
	CloseWorkspace(workspaceID string)
}

// MemberNotifier sends the optional "you were added" email.
type MemberNotifier interface {
	SendWorkspaceMemberAdded(toEmail, toName, workspaceName, inviterName, workspaceURL string) error
}

// TokenBlocklist remembers revoked access tokens until they expire.
type TokenBlocklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth       AuthService
	User       UserService
	Workspace  WorkspaceService
	Member     MemberService
	Project    ProjectService
	Task       TaskService
	Comment    CommentService
	Permission PermissionService
}

// ServiceDeps contains all dependencies needed to create services.
// Publisher, Notifier and Blocklist are optional.
type ServiceDeps struct {
	Config    *config.Config
	Repos     *repository.Repositories
	Logger    *zap.Logger
	Publisher EventPublisher
	Notifier  MemberNotifier
	Blocklist TokenBlocklist
}

func NewServices(deps *ServiceDeps) *Services {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = noopPublisher{}
	}

	permission := NewPermissionService(log)
	scope := &scopeResolver{perm: permission}

	return &Services{
		Auth:       NewAuthService(deps.Config, deps.Repos.UserRepo, deps.Blocklist, log),
		User:       NewUserService(deps.Repos.UserRepo),
		Workspace:  NewWorkspaceService(deps.Repos, scope, publisher, log),
		Member:     NewMemberService(deps.Repos, scope, publisher, deps.Notifier, deps.Config, log),
		Project:    NewProjectService(deps.Repos, scope, publisher, log),
		Task:       NewTaskService(deps.Repos, scope, publisher, log),
		Comment:    NewCommentService(deps.Repos, scope, publisher, log),
		Permission: permission,
	}
}

type noopPublisher struct{}

func (noopPublisher) BroadcastToWorkspace(string, socket.MessageType, map[string]interface{}) {}

func (noopPublisher) DetachUser(string, string) {}

func (noopPublisher) CloseWorkspace(string) {}
