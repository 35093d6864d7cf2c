package models

import (
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

var taskStatuses = []string{
	string(types.TaskStatusTodo), string(types.TaskStatusInProgress), string(types.TaskStatusDone),
}

type CreateTaskRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *int       `json:"priority"`
	AssigneeID  *string    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

func (r *CreateTaskRequest) Validate() error {
	var f fieldErrors
	f.length("name", r.Name, 3, 255)
	f.optionalLength("description", r.Description, 255)
	if r.Status != nil {
		f.oneOf("status", *r.Status, taskStatuses...)
	}
	f.intRange("priority", r.Priority, types.TaskPriorityMin, types.TaskPriorityMax)
	if r.AssigneeID != nil && *r.AssigneeID != "" && !IsUUID(*r.AssigneeID) {
		f.add("assigneeId", "must be a valid id")
	}
	return f.err()
}

// UpdateTaskRequest is a partial update; an empty assigneeId unassigns.
type UpdateTaskRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *int       `json:"priority"`
	AssigneeID  *string    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

func (r *UpdateTaskRequest) Validate() error {
	var f fieldErrors
	if r.Name != nil {
		f.length("name", *r.Name, 3, 255)
	}
	f.optionalLength("description", r.Description, 255)
	if r.Status != nil {
		f.oneOf("status", *r.Status, taskStatuses...)
	}
	f.intRange("priority", r.Priority, types.TaskPriorityMin, types.TaskPriorityMax)
	if r.AssigneeID != nil && *r.AssigneeID != "" && !IsUUID(*r.AssigneeID) {
		f.add("assigneeId", "must be a valid id")
	}
	return f.err()
}

func (q *ListQuery) ValidateForTasks() error {
	var f fieldErrors
	if q.Sort != "" {
		f.oneOf("sort", q.Sort, "created", "-created", "name", "priority", "-priority", "due")
	}
	if q.Status != "" {
		f.oneOf("status", q.Status, taskStatuses...)
	}
	return f.err()
}

type TaskResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	AssigneeID  *string    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ============================================
// Comment DTOs
// ============================================

type CreateCommentRequest struct {
	Content string `json:"content"`
}

func (r *CreateCommentRequest) Validate() error {
	var f fieldErrors
	f.length("content", r.Content, 1, 5000)
	return f.err()
}

type CommentResponse struct {
	ID        string       `json:"id"`
	TaskID    string       `json:"taskId"`
	UserID    *string      `json:"userId"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	Author    *UserSummary `json:"author,omitempty"`
}
