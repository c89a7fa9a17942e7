package application

import (
	"time"

	"github.com/example/planning-service/internal/interval"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   Role
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority ranks tasks.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusPlanned   ProjectStatus = "planned"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusDone      ProjectStatus = "done"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusActive, ProjectStatusDone, ProjectStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the project no longer accepts new tasks.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusDone || s == ProjectStatusCancelled
}

// PlanningType classifies calendar entries.
type PlanningType string

const (
	PlanningTypeMeeting  PlanningType = "meeting"
	PlanningTypeWork     PlanningType = "work"
	PlanningTypeTraining PlanningType = "training"
	PlanningTypeLeave    PlanningType = "leave"
	PlanningTypeAbsence  PlanningType = "absence"
	PlanningTypeOther    PlanningType = "other"
)

// Valid reports whether t is a known type.
func (t PlanningType) Valid() bool {
	switch t {
	case PlanningTypeMeeting, PlanningTypeWork, PlanningTypeTraining, PlanningTypeLeave, PlanningTypeAbsence, PlanningTypeOther:
		return true
	}
	return false
}

// User represents an account exposed by the application services.
type User struct {
	ID         string
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Department string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins the first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Project is a dated container for tasks.
type Project struct {
	ID          string
	Name        string
	Description string
	Client      string
	Period      interval.Interval
	Status      ProjectStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// Task is a unit of work inside a project. An empty AssigneeID means unassigned.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Period      interval.Interval
	Priority    TaskPriority
	Status      TaskStatus
	AssigneeID  string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assigned reports whether the task has an assignee.
func (t Task) Assigned() bool {
	return t.AssigneeID != ""
}

// Availability is a dated window during which a user is, or is not, available.
type Availability struct {
	ID        string
	UserID    string
	Period    interval.Interval
	Available bool
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Planning is a calendar entry for a user. ProjectID and TaskID are optional.
type Planning struct {
	ID          string
	Title       string
	Description string
	UserID      string
	Period      interval.Interval
	Type        PlanningType
	ProjectID   string
	TaskID      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityInput captures caller provided availability fields.
type AvailabilityInput struct {
	UserID    string
	Period    interval.Interval
	Available bool
	Note      string
}

// AvailabilityPatch lists the availability fields an update may overwrite.
type AvailabilityPatch struct {
	Start     Optional[time.Time]
	End       Optional[time.Time]
	Available Optional[bool]
	Note      Optional[string]
}

// CreateAvailabilityParams wraps the data required to create an availability.
type CreateAvailabilityParams struct {
	Principal Principal
	Input     AvailabilityInput
}

// UpdateAvailabilityParams wraps the data required to update an availability.
type UpdateAvailabilityParams struct {
	Principal      Principal
	AvailabilityID string
	Patch          AvailabilityPatch
}

// ListAvailabilitiesParams narrows availability listings. Period selects
// windows overlapping it.
type ListAvailabilitiesParams struct {
	UserID   string
	Period   *interval.Interval
	Page     int
	PageSize int
}

// AvailabilityCheck is the outcome of a composite availability query.
type AvailabilityCheck struct {
	UserID    string
	Period    interval.Interval
	Available bool
	// VetoedBy lists the unavailable windows overlapping the period.
	VetoedBy []string
	// CoveredBy is the window that contains the period when the user is available.
	CoveredBy string
}

// ProjectInput captures caller provided project fields.
type ProjectInput struct {
	Name        string
	Description string
	Client      string
	Period      interval.Interval
	Status      ProjectStatus
}

// ProjectPatch lists the project fields an update may overwrite.
type ProjectPatch struct {
	Name        Optional[string]
	Description Optional[string]
	Client      Optional[string]
	Start       Optional[time.Time]
	End         Optional[time.Time]
	Status      Optional[ProjectStatus]
}

// CreateProjectParams wraps the data required to create a project.
type CreateProjectParams struct {
	Principal Principal
	Input     ProjectInput
}

// UpdateProjectParams wraps the data required to update a project.
type UpdateProjectParams struct {
	Principal Principal
	ProjectID string
	Patch     ProjectPatch
}

// ListProjectsParams narrows project listings. Period selects projects lying
// entirely inside it.
type ListProjectsParams struct {
	Status   ProjectStatus
	Period   *interval.Interval
	Page     int
	PageSize int
}

// TaskInput captures caller provided task fields.
type TaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Period      interval.Interval
	Priority    TaskPriority
	Status      TaskStatus
}

// TaskPatch lists the task fields an update may overwrite. The project is
// fixed and the status changes through ChangeStatus.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Start       Optional[time.Time]
	End         Optional[time.Time]
	Priority    Optional[TaskPriority]
}

// DatesProvided reports whether the patch touches the task period.
func (p TaskPatch) DatesProvided() bool {
	return p.Start.IsSet() || p.End.IsSet()
}

// CreateTaskParams wraps the data required to create a task.
type CreateTaskParams struct {
	Principal Principal
	Input     TaskInput
}

// UpdateTaskParams wraps the data required to update a task.
type UpdateTaskParams struct {
	Principal Principal
	TaskID    string
	Patch     TaskPatch
}

// ChangeTaskStatusParams wraps a status overwrite.
type ChangeTaskStatusParams struct {
	Principal Principal
	TaskID    string
	Status    TaskStatus
}

// AssignTaskParams wraps an assignment or reassignment.
type AssignTaskParams struct {
	Principal Principal
	TaskID    string
	UserID    string
}

// ListTasksParams narrows task listings. Period selects tasks lying entirely inside it.
type ListTasksParams struct {
	ProjectID  string
	Status     TaskStatus
	AssigneeID string
	Period     *interval.Interval
	Page       int
	PageSize   int
}

// PlanningInput captures caller provided planning fields.
type PlanningInput struct {
	Title       string
	Description string
	UserID      string
	Period      interval.Interval
	Type        PlanningType
	ProjectID   string
	TaskID      string
}

// PlanningPatch lists the planning fields an update may overwrite.
type PlanningPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Start       Optional[time.Time]
	End         Optional[time.Time]
	Type        Optional[PlanningType]
	ProjectID   Optional[string]
	TaskID      Optional[string]
}

// CreatePlanningParams wraps the data required to create a planning entry.
type CreatePlanningParams struct {
	Principal Principal
	Input     PlanningInput
}

// UpdatePlanningParams wraps the data required to update a planning entry.
type UpdatePlanningParams struct {
	Principal  Principal
	PlanningID string
	Patch      PlanningPatch
}

// ListPlanningsParams narrows planning listings. Period selects entries lying
// entirely inside it. Listings by user alone are returned newest first.
type ListPlanningsParams struct {
	UserID    string
	ProjectID string
	TaskID    string
	Type      PlanningType
	Period    *interval.Interval
	Page      int
	PageSize  int
}

// RegisterParams captures a self-service registration.
type RegisterParams struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Department string
}

// UpdateProfileParams captures profile changes of the acting user.
type UpdateProfileParams struct {
	Principal  Principal
	Email      Optional[string]
	Password   Optional[string]
	FirstName  Optional[string]
	LastName   Optional[string]
	Department Optional[string]
}

// CreateAdminParams captures the bootstrap administrator.
type CreateAdminParams struct {
	Username string
	Email    string
	Password string
}

// LoginParams captures a login attempt.
type LoginParams struct {
	Username string
	Password string
}

// LoginResult carries the issued bearer token.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
