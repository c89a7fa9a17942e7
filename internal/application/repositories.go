package application

import (
	"context"

	"github.com/example/planning-service/internal/interval"
)

// UserRepository captures the persistence operations needed by the identity services.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	// UpdateUser overwrites the profile. An empty PasswordHash keeps the stored hash.
	UpdateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserDirectory resolves users referenced by other entities.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// AvailabilityFilter narrows availability queries. Period selects windows overlapping it.
type AvailabilityFilter struct {
	UserID string
	Period *interval.Interval
}

// AvailabilityRepository captures the persistence operations needed by the availability ledger.
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, availability Availability) (Availability, error)
	UpdateAvailability(ctx context.Context, availability Availability) (Availability, error)
	GetAvailability(ctx context.Context, id string) (Availability, error)
	ListAvailabilities(ctx context.Context, filter AvailabilityFilter) ([]Availability, error)
	DeleteAvailability(ctx context.Context, id string) error
}

// ProjectFilter narrows project queries. Period selects projects lying entirely inside it.
type ProjectFilter struct {
	Status ProjectStatus
	Period *interval.Interval
}

// ProjectRepository captures the persistence operations needed by the project lifecycle.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) (Project, error)
	UpdateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	CountProjectsByStatus(ctx context.Context, status ProjectStatus) (int, error)
	DeleteProject(ctx context.Context, id string) error
}

// TaskFilter narrows task queries. Period selects tasks lying entirely inside it.
type TaskFilter struct {
	ProjectID  string
	Status     TaskStatus
	AssigneeID string
	Period     *interval.Interval
}

// ConflictQuery selects the tasks of AssigneeID that are not done, overlap
// Period and are not ExcludeTaskID.
type ConflictQuery struct {
	AssigneeID    string
	Period        interval.Interval
	ExcludeTaskID string
}

// TaskRepository captures the persistence operations needed by the task scheduler.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	ListConflictingTasks(ctx context.Context, query ConflictQuery) ([]Task, error)
	CountTasksByStatus(ctx context.Context, status TaskStatus) (int, error)
	DeleteTask(ctx context.Context, id string) error
}

// PlanningFilter narrows planning queries. Period selects entries lying entirely inside it.
type PlanningFilter struct {
	UserID      string
	ProjectID   string
	TaskID      string
	Type        PlanningType
	Period      *interval.Interval
	NewestFirst bool
}

// PlanningRepository captures the persistence operations needed by the planning journal.
type PlanningRepository interface {
	CreatePlanning(ctx context.Context, planning Planning) (Planning, error)
	UpdatePlanning(ctx context.Context, planning Planning) (Planning, error)
	GetPlanning(ctx context.Context, id string) (Planning, error)
	ListPlannings(ctx context.Context, filter PlanningFilter) ([]Planning, error)
	DeletePlanning(ctx context.Context, id string) error
}
