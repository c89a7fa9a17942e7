package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
	"github.com/example/planning-service/internal/persistence"
)

var (
	userCounter         uint64
	projectCounter      uint64
	taskCounter         uint64
	availabilityCounter uint64
	planningCounter     uint64
)

// referenceTime is a Monday morning; the dated fixtures start on its calendar day.
var referenceTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Day returns midnight UTC of the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ReferenceDay returns the calendar day of ReferenceTime plus offset days.
func ReferenceDay(offset int) time.Time {
	return Day(referenceTime.Year(), referenceTime.Month(), referenceTime.Day()+offset)
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Department   string
	Role         application.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic employee fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Username:     id,
		Email:        fmt.Sprintf("%s@example.com", id),
		FirstName:    "User",
		LastName:     fmt.Sprintf("%03d", idx),
		Role:         application.RoleEmployee,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUsername overrides the generated username and derives the email from it.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
		f.Email = username + "@example.com"
	}
}

// WithUserRole sets the role of the generated fixture.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:         f.ID,
		Username:   f.Username,
		Email:      f.Email,
		FirstName:  f.FirstName,
		LastName:   f.LastName,
		Department: f.Department,
		Role:       f.Role,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Department:   f.Department,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ---------------------------- Project fixtures ----------------------------

// ProjectFixture represents a deterministic project spanning four weeks from
// the reference day.
type ProjectFixture struct {
	ID        string
	Name      string
	Client    string
	Period    interval.Interval
	Status    application.ProjectStatus
	CreatedBy string
	CreatedAt time.Time
}

// ProjectOption configures the generated project fixture.
type ProjectOption func(*ProjectFixture)

// NewProjectFixture returns a deterministic project fixture with optional overrides.
func NewProjectFixture(opts ...ProjectOption) ProjectFixture {
	idx := atomic.AddUint64(&projectCounter, 1)
	fixture := ProjectFixture{
		ID:        fmt.Sprintf("project-%03d", idx),
		Name:      fmt.Sprintf("Project %03d", idx),
		Client:    "Acme",
		Period:    interval.New(ReferenceDay(0), ReferenceDay(27)),
		Status:    application.ProjectStatusActive,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProjectID overrides the generated project ID.
func WithProjectID(id string) ProjectOption {
	return func(f *ProjectFixture) {
		f.ID = id
	}
}

// WithProjectPeriod sets the project dates.
func WithProjectPeriod(start, end time.Time) ProjectOption {
	return func(f *ProjectFixture) {
		f.Period = interval.New(start, end)
	}
}

// WithProjectStatus sets the lifecycle status.
func WithProjectStatus(status application.ProjectStatus) ProjectOption {
	return func(f *ProjectFixture) {
		f.Status = status
	}
}

// WithProjectCreator records who created the project.
func WithProjectCreator(userID string) ProjectOption {
	return func(f *ProjectFixture) {
		f.CreatedBy = userID
	}
}

// Input returns the fixture as an application.ProjectInput.
func (f ProjectFixture) Input() application.ProjectInput {
	return application.ProjectInput{Name: f.Name, Client: f.Client, Period: f.Period, Status: f.Status}
}

// Application returns the fixture as an application.Project value.
func (f ProjectFixture) Application() application.Project {
	return application.Project{
		ID:        f.ID,
		Name:      f.Name,
		Client:    f.Client,
		Period:    f.Period,
		Status:    f.Status,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Project value.
func (f ProjectFixture) Persistence() persistence.Project {
	return persistence.Project{
		ID:        f.ID,
		Name:      f.Name,
		Client:    f.Client,
		StartDate: f.Period.Start,
		EndDate:   f.Period.End,
		Status:    string(f.Status),
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// ------------------------------ Task fixtures ------------------------------

// TaskFixture represents a deterministic task of one week inside its project.
type TaskFixture struct {
	ID         string
	ProjectID  string
	Title      string
	Period     interval.Interval
	Priority   application.TaskPriority
	Status     application.TaskStatus
	AssigneeID string
	CreatedAt  time.Time
}

// TaskOption configures the generated task fixture.
type TaskOption func(*TaskFixture)

// NewTaskFixture returns a deterministic task fixture belonging to projectID.
func NewTaskFixture(projectID string, opts ...TaskOption) TaskFixture {
	idx := atomic.AddUint64(&taskCounter, 1)
	fixture := TaskFixture{
		ID:        fmt.Sprintf("task-%03d", idx),
		ProjectID: projectID,
		Title:     fmt.Sprintf("Task %03d", idx),
		Period:    interval.New(ReferenceDay(0), ReferenceDay(4)),
		Priority:  application.TaskPriorityMedium,
		Status:    application.TaskStatusTodo,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTaskID overrides the generated task ID.
func WithTaskID(id string) TaskOption {
	return func(f *TaskFixture) {
		f.ID = id
	}
}

// WithTaskPeriod sets the task dates.
func WithTaskPeriod(start, end time.Time) TaskOption {
	return func(f *TaskFixture) {
		f.Period = interval.New(start, end)
	}
}

// WithTaskStatus sets the workflow status.
func WithTaskStatus(status application.TaskStatus) TaskOption {
	return func(f *TaskFixture) {
		f.Status = status
	}
}

// WithTaskAssignee assigns the task.
func WithTaskAssignee(userID string) TaskOption {
	return func(f *TaskFixture) {
		f.AssigneeID = userID
	}
}

// Application returns the fixture as an application.Task value.
func (f TaskFixture) Application() application.Task {
	return application.Task{
		ID:         f.ID,
		ProjectID:  f.ProjectID,
		Title:      f.Title,
		Period:     f.Period,
		Priority:   f.Priority,
		Status:     f.Status,
		AssigneeID: f.AssigneeID,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Task value.
func (f TaskFixture) Persistence() persistence.Task {
	return persistence.Task{
		ID:         f.ID,
		ProjectID:  f.ProjectID,
		Title:      f.Title,
		StartDate:  f.Period.Start,
		EndDate:    f.Period.End,
		Priority:   string(f.Priority),
		Status:     string(f.Status),
		AssigneeID: optionalString(f.AssigneeID),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.CreatedAt,
	}
}

// -------------------------- Availability fixtures --------------------------

// AvailabilityFixture represents a deterministic availability window.
type AvailabilityFixture struct {
	ID        string
	UserID    string
	Period    interval.Interval
	Available bool
	Note      string
	CreatedAt time.Time
}

// AvailabilityOption configures the generated availability fixture.
type AvailabilityOption func(*AvailabilityFixture)

// NewAvailabilityFixture returns an available window of userID covering the
// first two weeks from the reference day.
func NewAvailabilityFixture(userID string, opts ...AvailabilityOption) AvailabilityFixture {
	idx := atomic.AddUint64(&availabilityCounter, 1)
	fixture := AvailabilityFixture{
		ID:        fmt.Sprintf("availability-%03d", idx),
		UserID:    userID,
		Period:    interval.New(ReferenceDay(0), ReferenceDay(13)),
		Available: true,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAvailabilityPeriod sets the window dates.
func WithAvailabilityPeriod(start, end time.Time) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.Period = interval.New(start, end)
	}
}

// Unavailable marks the window as an absence.
func Unavailable(note string) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.Available = false
		f.Note = note
	}
}

// Application returns the fixture as an application.Availability value.
func (f AvailabilityFixture) Application() application.Availability {
	return application.Availability{
		ID:        f.ID,
		UserID:    f.UserID,
		Period:    f.Period,
		Available: f.Available,
		Note:      f.Note,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Availability value.
func (f AvailabilityFixture) Persistence() persistence.Availability {
	return persistence.Availability{
		ID:        f.ID,
		UserID:    f.UserID,
		StartDate: f.Period.Start,
		EndDate:   f.Period.End,
		Available: f.Available,
		Note:      f.Note,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// ---------------------------- Planning fixtures ----------------------------

// PlanningFixture represents a deterministic one hour calendar entry.
type PlanningFixture struct {
	ID        string
	Title     string
	UserID    string
	Period    interval.Interval
	Type      application.PlanningType
	ProjectID string
	TaskID    string
	CreatedBy string
	CreatedAt time.Time
}

// PlanningOption configures the generated planning fixture.
type PlanningOption func(*PlanningFixture)

// NewPlanningFixture returns a meeting of userID starting idx hours after ReferenceTime.
func NewPlanningFixture(userID string, opts ...PlanningOption) PlanningFixture {
	idx := atomic.AddUint64(&planningCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := PlanningFixture{
		ID:        fmt.Sprintf("planning-%03d", idx),
		Title:     fmt.Sprintf("Planning %03d", idx),
		UserID:    userID,
		Period:    interval.New(start, start.Add(time.Hour)),
		Type:      application.PlanningTypeMeeting,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPlanningPeriod sets the entry start and end.
func WithPlanningPeriod(start, end time.Time) PlanningOption {
	return func(f *PlanningFixture) {
		f.Period = interval.New(start, end)
	}
}

// WithPlanningTask links the entry to a project task.
func WithPlanningTask(projectID, taskID string) PlanningOption {
	return func(f *PlanningFixture) {
		f.ProjectID = projectID
		f.TaskID = taskID
	}
}

// Application returns the fixture as an application.Planning value.
func (f PlanningFixture) Application() application.Planning {
	return application.Planning{
		ID:        f.ID,
		Title:     f.Title,
		UserID:    f.UserID,
		Period:    f.Period,
		Type:      f.Type,
		ProjectID: f.ProjectID,
		TaskID:    f.TaskID,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Planning value.
func (f PlanningFixture) Persistence() persistence.Planning {
	return persistence.Planning{
		ID:        f.ID,
		Title:     f.Title,
		UserID:    f.UserID,
		StartsAt:  f.Period.Start,
		EndsAt:    f.Period.End,
		Type:      string(f.Type),
		ProjectID: optionalString(f.ProjectID),
		TaskID:    optionalString(f.TaskID),
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
