package repository

import (
	"context"
	"time"
)

type TaskComment struct {
	ID        string
	TaskID    string
	UserID    *string
	Content   string
	CreatedAt time.Time
	User      *User
}

type CommentRepository interface {
	Create(ctx context.Context, comment *TaskComment) error
	FindByID(ctx context.Context, id string) (*TaskComment, error)
	// ListByTask returns comments in creation order with User populated when the author still exists.
	ListByTask(ctx context.Context, taskID string) ([]*TaskComment, error)
	Delete(ctx context.Context, id string) error
}

type pgCommentRepository struct {
	db DBTX
}

func (r *pgCommentRepository) Create(ctx context.Context, comment *TaskComment) error {
	query := `
		INSERT INTO task_comments (task_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, comment.TaskID, comment.UserID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt)
	return mapPgError(err)
}

func (r *pgCommentRepository) FindByID(ctx context.Context, id string) (*TaskComment, error) {
	query := `SELECT id, task_id, user_id, content, created_at FROM task_comments WHERE id = $1`
	c := &TaskComment{}
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, absentAsNil(err)
	}
	return c, nil
}

func (r *pgCommentRepository) ListByTask(ctx context.Context, taskID string) ([]*TaskComment, error) {
	query := `
		SELECT c.id, c.task_id, c.user_id, c.content, c.created_at,
		       u.id, u.email, u.name, u.image
		FROM task_comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.task_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var comments []*TaskComment
	for rows.Next() {
		c := &TaskComment{}
		var (
			uid, email, name *string
			image            *string
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &uid, &email, &name, &image); err != nil {
			return nil, err
		}
		if uid != nil {
			c.User = &User{ID: *uid, Email: deref(email), Name: deref(name), Image: image}
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *pgCommentRepository) Delete(ctx context.Context, id string) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM task_comments WHERE id = $1`, id))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
