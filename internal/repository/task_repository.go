package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

type Task struct {
	ID          string
	ProjectID   string
	Name        string
	Description *string
	AssigneeID  *string
	Status      types.TaskStatus
	Priority    int
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	ListByProject(ctx context.Context, projectID string, opts ListOptions) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	// UnassignInWorkspace clears userID as assignee on every task of the workspace.
	UnassignInWorkspace(ctx context.Context, workspaceID, userID string) (int64, error)
}

var taskSorts = map[string]string{
	"created":   "created_at ASC, id ASC",
	"-created":  "created_at DESC, id DESC",
	"name":      "lower(name) ASC, created_at ASC",
	"priority":  "priority ASC, created_at ASC",
	"-priority": "priority DESC, created_at ASC",
	"due":       "due_date ASC NULLS LAST, created_at ASC",
}

type pgTaskRepository struct {
	db DBTX
}

const taskColumns = `id, project_id, name, description, assignee_id, status, priority, due_date, created_at, updated_at`

func scanTask(row interface{ Scan(dest ...any) error }) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.AssigneeID, &t.Status, &t.Priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (r *pgTaskRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (project_id, name, description, assignee_id, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.ProjectID, task.Name, task.Description, task.AssigneeID, task.Status, task.Priority, task.DueDate,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	return mapPgError(err)
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, absentAsNil(err)
	}
	return t, nil
}

func (r *pgTaskRepository) ListByProject(ctx context.Context, projectID string, opts ListOptions) ([]*Task, error) {
	order, ok := taskSorts[opts.Sort]
	if !ok {
		order = taskSorts["created"]
	}
	args := []any{projectID}
	where := "project_id = $1"
	if opts.Status != "" {
		args = append(args, opts.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	page, args := pageClause(opts, args)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s%s`, taskColumns, where, order, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *pgTaskRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET name = $2, description = $3, assignee_id = $4, status = $5, priority = $6, due_date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.ID, task.Name, task.Description, task.AssigneeID, task.Status, task.Priority, task.DueDate,
	).Scan(&task.UpdatedAt)
	return mapPgError(err)
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id))
}

func (r *pgTaskRepository) UnassignInWorkspace(ctx context.Context, workspaceID, userID string) (int64, error) {
	query := `
		UPDATE tasks t
		SET assignee_id = NULL, updated_at = NOW()
		FROM projects p
		WHERE t.project_id = p.id AND p.workspace_id = $1 AND t.assignee_id = $2
	`
	tag, err := r.db.Exec(ctx, query, workspaceID, userID)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}
