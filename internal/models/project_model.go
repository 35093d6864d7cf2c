package models

import (
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

var projectStatuses = []string{
	string(types.ProjectStatusBacklog), string(types.ProjectStatusPlanned), string(types.ProjectStatusInProgress),
	string(types.ProjectStatusCompleted), string(types.ProjectStatusCancelled),
}

type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *int       `json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (r *CreateProjectRequest) Validate() error {
	var f fieldErrors
	f.length("name", r.Name, 1, 255)
	f.optionalLength("description", r.Description, 1000)
	if r.Status != nil {
		f.oneOf("status", *r.Status, projectStatuses...)
	}
	f.intRange("priority", r.Priority, types.ProjectPriorityMin, types.ProjectPriorityMax)
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		f.add("endDate", "must not be before startDate")
	}
	return f.err()
}

type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *int       `json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`

	// ClearEndDate removes a previously set end date.
	ClearEndDate bool `json:"clearEndDate"`
}

func (r *UpdateProjectRequest) Validate() error {
	var f fieldErrors
	if r.Name != nil {
		f.length("name", *r.Name, 1, 255)
	}
	f.optionalLength("description", r.Description, 1000)
	if r.Status != nil {
		f.oneOf("status", *r.Status, projectStatuses...)
	}
	f.intRange("priority", r.Priority, types.ProjectPriorityMin, types.ProjectPriorityMax)
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		f.add("endDate", "must not be before startDate")
	}
	if r.ClearEndDate && r.EndDate != nil {
		f.add("endDate", "cannot be set together with clearEndDate")
	}
	return f.err()
}

// ListQuery is bound from ?sort&status on project and task listings.
type ListQuery struct {
	Sort   string `form:"sort"`
	Status string `form:"status"`
}

func (q *ListQuery) ValidateForProjects() error {
	var f fieldErrors
	if q.Sort != "" {
		f.oneOf("sort", q.Sort, "created", "-created", "name", "priority", "-priority")
	}
	if q.Status != "" {
		f.oneOf("status", q.Status, projectStatuses...)
	}
	return f.err()
}

type ProjectResponse struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
