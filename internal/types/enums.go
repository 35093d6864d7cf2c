package types

// ProjectStatus values.
type ProjectStatus string

const (
	ProjectStatusBacklog    ProjectStatus = "backlog"
	ProjectStatusPlanned    ProjectStatus = "planned"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusBacklog, ProjectStatusPlanned, ProjectStatusInProgress,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// TaskStatus values.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Priority bounds, inclusive.
const (
	ProjectPriorityMin = 0
	ProjectPriorityMax = 4
	TaskPriorityMin    = 0
	TaskPriorityMax    = 2
)
