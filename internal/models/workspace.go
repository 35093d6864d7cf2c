package models

import "time"

// Request models
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (r *CreateWorkspaceRequest) Validate() error {
	var f fieldErrors
	f.length("name", r.Name, 2, 100)
	f.slug("slug", r.Slug)
	return f.err()
}

type UpdateWorkspaceRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

func (r *UpdateWorkspaceRequest) Validate() error {
	var f fieldErrors
	if r.Name == nil && r.Slug == nil {
		f.add("body", "at least one of name, slug is required")
	}
	if r.Name != nil {
		f.length("name", *r.Name, 2, 100)
	}
	if r.Slug != nil {
		f.slug("slug", *r.Slug)
	}
	return f.err()
}

// ListWorkspacesQuery is bound from ?page&limit&sort.
type ListWorkspacesQuery struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize applies defaults to unset fields.
func (q *ListWorkspacesQuery) Normalize() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Sort == "" {
		q.Sort = "created"
	}
}

func (q *ListWorkspacesQuery) Validate() error {
	var f fieldErrors
	if q.Page < 1 {
		f.add("page", "must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		f.add("limit", "must be between 1 and %d", MaxPageSize)
	}
	f.oneOf("sort", q.Sort, "created", "accessed", "name")
	return f.err()
}

func (q *ListWorkspacesQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Response models
type WorkspaceResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	OwnerID    string    `json:"ownerId"`
	Role       string    `json:"role,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	AccessedAt time.Time `json:"accessedAt"`
}

type WorkspaceListResponse struct {
	Workspaces []WorkspaceResponse `json:"workspaces"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
}
