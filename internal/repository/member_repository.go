package repository

import (
	"context"
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

type WorkspaceMember struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        types.Role
	AddedAt     time.Time
	User        *User
}

type MemberRepository interface {
	Add(ctx context.Context, member *WorkspaceMember) error
	Find(ctx context.Context, workspaceID, userID string) (*WorkspaceMember, error)
	// List returns members in the order they were added, with User populated.
	List(ctx context.Context, workspaceID string) ([]*WorkspaceMember, error)
	UpdateRole(ctx context.Context, workspaceID, userID string, role types.Role) error
	Remove(ctx context.Context, workspaceID, userID string) error
	CountAdmins(ctx context.Context, workspaceID string) (int, error)
}

type pgMemberRepository struct {
	db DBTX
}

func (r *pgMemberRepository) Add(ctx context.Context, member *WorkspaceMember) error {
	query := `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, added_at
	`
	err := r.db.QueryRow(ctx, query, member.WorkspaceID, member.UserID, member.Role).
		Scan(&member.ID, &member.AddedAt)
	return mapPgError(err)
}

func (r *pgMemberRepository) Find(ctx context.Context, workspaceID, userID string) (*WorkspaceMember, error) {
	query := `
		SELECT id, workspace_id, user_id, role, added_at
		FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`
	m := &WorkspaceMember{}
	err := r.db.QueryRow(ctx, query, workspaceID, userID).
		Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.AddedAt)
	if err != nil {
		return nil, absentAsNil(err)
	}
	return m, nil
}

func (r *pgMemberRepository) List(ctx context.Context, workspaceID string) ([]*WorkspaceMember, error) {
	query := `
		SELECT wm.id, wm.workspace_id, wm.user_id, wm.role, wm.added_at,
		       u.id, u.email, u.name, u.image, u.created_at, u.updated_at
		FROM workspace_members wm
		INNER JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = $1
		ORDER BY wm.added_at ASC, wm.id ASC
	`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var members []*WorkspaceMember
	for rows.Next() {
		m := &WorkspaceMember{User: &User{}}
		if err := rows.Scan(
			&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.AddedAt,
			&m.User.ID, &m.User.Email, &m.User.Name, &m.User.Image, &m.User.CreatedAt, &m.User.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgMemberRepository) UpdateRole(ctx context.Context, workspaceID, userID string, role types.Role) error {
	query := `UPDATE workspace_members SET role = $3 WHERE workspace_id = $1 AND user_id = $2`
	return requireAffected(r.db.Exec(ctx, query, workspaceID, userID, role))
}

func (r *pgMemberRepository) Remove(ctx context.Context, workspaceID, userID string) error {
	query := `DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	return requireAffected(r.db.Exec(ctx, query, workspaceID, userID))
}

func (r *pgMemberRepository) CountAdmins(ctx context.Context, workspaceID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM workspace_members WHERE workspace_id = $1 AND role = 'admin'`
	if err := r.db.QueryRow(ctx, query, workspaceID).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}
