package repository

import (
	"context"
	"fmt"
	"time"
)

type Workspace struct {
	ID         string
	Name       string
	Slug       string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	AccessedAt time.Time
}

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *Workspace) error
	FindByID(ctx context.Context, id string) (*Workspace, error)
	FindBySlug(ctx context.Context, slug string) (*Workspace, error)
	// ListByUser returns one page of the user's workspaces and the total count.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*Workspace, int, error)
	Update(ctx context.Context, workspace *Workspace) error
	TouchAccessedAt(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// LockForUpdate serializes membership mutations on one workspace
	// until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, id string) error
}

var workspaceSorts = map[string]string{
	"created":  "w.created_at ASC, w.id ASC",
	"accessed": "w.accessed_at DESC, w.id ASC",
	"name":     "lower(w.name) ASC, w.id ASC",
}

type pgWorkspaceRepository struct {
	db DBTX
}

const workspaceColumns = `w.id, w.name, w.slug, w.owner_id, w.created_at, w.updated_at, w.accessed_at`

func scanWorkspace(row interface{ Scan(dest ...any) error }) (*Workspace, error) {
	ws := &Workspace{}
	err := row.Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt, &ws.AccessedAt)
	return ws, err
}

func (r *pgWorkspaceRepository) Create(ctx context.Context, workspace *Workspace) error {
	query := `
		INSERT INTO workspaces (name, slug, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at, accessed_at
	`
	err := r.db.QueryRow(ctx, query, workspace.Name, workspace.Slug, workspace.OwnerID).
		Scan(&workspace.ID, &workspace.CreatedAt, &workspace.UpdatedAt, &workspace.AccessedAt)
	return mapPgError(err)
}

func (r *pgWorkspaceRepository) FindByID(ctx context.Context, id string) (*Workspace, error) {
	ws, err := scanWorkspace(r.db.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.id = $1`, id))
	if err != nil {
		return nil, absentAsNil(err)
	}
	return ws, nil
}

func (r *pgWorkspaceRepository) FindBySlug(ctx context.Context, slug string) (*Workspace, error) {
	ws, err := scanWorkspace(r.db.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.slug = $1`, slug))
	if err != nil {
		return nil, absentAsNil(err)
	}
	return ws, nil
}

func (r *pgWorkspaceRepository) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*Workspace, int, error) {
	var total int
	countQuery := `SELECT count(*) FROM workspace_members WHERE user_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, mapPgError(err)
	}

	order, ok := workspaceSorts[opts.Sort]
	if !ok {
		order = workspaceSorts["created"]
	}
	page, args := pageClause(opts, []any{userID})
	query := fmt.Sprintf(`
		SELECT %s FROM workspaces w
		INNER JOIN workspace_members wm ON wm.workspace_id = w.id
		WHERE wm.user_id = $1
		ORDER BY %s%s
	`, workspaceColumns, order, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, 0, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, total, rows.Err()
}

func (r *pgWorkspaceRepository) Update(ctx context.Context, workspace *Workspace) error {
	query := `
		UPDATE workspaces SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, workspace.ID, workspace.Name, workspace.Slug).Scan(&workspace.UpdatedAt)
	return mapPgError(err)
}

func (r *pgWorkspaceRepository) TouchAccessedAt(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE workspaces SET accessed_at = $2 WHERE id = $1`, id, at))
}

func (r *pgWorkspaceRepository) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id))
}

func (r *pgWorkspaceRepository) LockForUpdate(ctx context.Context, id string) error {
	var locked string
	err := r.db.QueryRow(ctx, `SELECT id FROM workspaces WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return mapPgError(err)
}
