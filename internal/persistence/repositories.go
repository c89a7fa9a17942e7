package persistence

import (
	"context"
	"time"
)

// Transactor runs fn inside a single store transaction. Repositories called with
// the context handed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// ProjectFilter narrows project queries. From and To select projects whose
// dates lie entirely inside the range.
type ProjectFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// ProjectRepository stores projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) error
	UpdateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	CountProjectsByStatus(ctx context.Context, status string) (int, error)
	DeleteProject(ctx context.Context, id string) error
}

// TaskFilter narrows task queries. From and To select tasks whose dates lie
// entirely inside the range.
type TaskFilter struct {
	ProjectID  string
	Status     string
	AssigneeID string
	From       *time.Time
	To         *time.Time
}

// ConflictQuery selects the tasks that block an assignment: assigned to
// AssigneeID, not done, overlapping [Start, End], and not ExcludeTaskID.
type ConflictQuery struct {
	AssigneeID    string
	Start         time.Time
	End           time.Time
	ExcludeTaskID string
	DoneStatus    string
}

// TaskRepository stores tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	ListConflictingTasks(ctx context.Context, query ConflictQuery) ([]Task, error)
	CountTasksByStatus(ctx context.Context, status string) (int, error)
	DeleteTask(ctx context.Context, id string) error
}

// AvailabilityFilter narrows availability queries. From and To select windows
// overlapping the range.
type AvailabilityFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
}

// AvailabilityRepository stores availability windows.
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, availability Availability) error
	UpdateAvailability(ctx context.Context, availability Availability) error
	GetAvailability(ctx context.Context, id string) (Availability, error)
	ListAvailabilities(ctx context.Context, filter AvailabilityFilter) ([]Availability, error)
	DeleteAvailability(ctx context.Context, id string) error
}

// PlanningFilter narrows planning queries. From and To select entries whose
// times lie entirely inside the range.
type PlanningFilter struct {
	UserID    string
	ProjectID string
	TaskID    string
	Type      string
	From      *time.Time
	To        *time.Time
	// NewestFirst orders by start time descending instead of ascending.
	NewestFirst bool
}

// PlanningRepository stores planning entries.
type PlanningRepository interface {
	CreatePlanning(ctx context.Context, planning Planning) error
	UpdatePlanning(ctx context.Context, planning Planning) error
	GetPlanning(ctx context.Context, id string) (Planning, error)
	ListPlannings(ctx context.Context, filter PlanningFilter) ([]Planning, error)
	DeletePlanning(ctx context.Context, id string) error
}
