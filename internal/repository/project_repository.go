package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Description *string
	Status      types.ProjectStatus
	Priority    int
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	ListByWorkspace(ctx context.Context, workspaceID string, opts ListOptions) ([]*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
}

var projectSorts = map[string]string{
	"created":   "created_at ASC, id ASC",
	"-created":  "created_at DESC, id DESC",
	"name":      "lower(name) ASC, created_at ASC",
	"priority":  "priority ASC, created_at ASC",
	"-priority": "priority DESC, created_at ASC",
}

type pgProjectRepository struct {
	db DBTX
}

const projectColumns = `id, workspace_id, name, description, status, priority, start_date, end_date, created_at, updated_at`

func scanProject(row interface{ Scan(dest ...any) error }) (*Project, error) {
	p := &Project{}
	err := row.Scan(
		&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Status, &p.Priority,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *pgProjectRepository) Create(ctx context.Context, project *Project) error {
	query := `
		INSERT INTO projects (workspace_id, name, description, status, priority, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		project.WorkspaceID, project.Name, project.Description, project.Status, project.Priority,
		project.StartDate, project.EndDate,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	return mapPgError(err)
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, absentAsNil(err)
	}
	return p, nil
}

func (r *pgProjectRepository) ListByWorkspace(ctx context.Context, workspaceID string, opts ListOptions) ([]*Project, error) {
	order, ok := projectSorts[opts.Sort]
	if !ok {
		order = projectSorts["created"]
	}
	args := []any{workspaceID}
	where := "workspace_id = $1"
	if opts.Status != "" {
		args = append(args, opts.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	page, args := pageClause(opts, args)
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY %s%s`, projectColumns, where, order, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *pgProjectRepository) Update(ctx context.Context, project *Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, status = $4, priority = $5, start_date = $6, end_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		project.ID, project.Name, project.Description, project.Status, project.Priority,
		project.StartDate, project.EndDate,
	).Scan(&project.UpdatedAt)
	return mapPgError(err)
}

func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id))
}
