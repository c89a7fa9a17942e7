package gormstore

import (
	"time"

	"gorm.io/datatypes"

	"github.com/example/planning-service/internal/persistence"
)

type userRecord struct {
	ID           string `gorm:"primaryKey;size:64"`
	Username     string `gorm:"size:50;not null;uniqueIndex"`
	Email        string `gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:50;not null;default:''"`
	LastName     string `gorm:"size:50;not null;default:''"`
	Department   string `gorm:"size:100;not null;default:''"`
	Role         string `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

// projects.id is not referenced by foreign keys: tasks and plannings keep
// their project id when a project is deleted.
type projectRecord struct {
	ID          string         `gorm:"primaryKey;size:64"`
	Name        string         `gorm:"size:100;not null"`
	Description string         `gorm:"not null;default:''"`
	Client      string         `gorm:"size:100;not null"`
	StartDate   datatypes.Date `gorm:"not null;index:idx_projects_dates"`
	EndDate     datatypes.Date `gorm:"not null;index:idx_projects_dates"`
	Status      string         `gorm:"size:16;not null;index"`
	CreatedBy   string         `gorm:"size:64;not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

func (projectRecord) TableName() string { return "projects" }

type taskRecord struct {
	ID          string         `gorm:"primaryKey;size:64"`
	ProjectID   string         `gorm:"size:64;not null;index:idx_tasks_project_status"`
	Title       string         `gorm:"size:200;not null"`
	Description string         `gorm:"not null;default:''"`
	StartDate   datatypes.Date `gorm:"not null;index:idx_tasks_assignee_dates"`
	EndDate     datatypes.Date `gorm:"not null;index:idx_tasks_assignee_dates"`
	Priority    string         `gorm:"size:16;not null"`
	Status      string         `gorm:"size:16;not null;index:idx_tasks_project_status"`
	AssigneeID  *string        `gorm:"size:64;index:idx_tasks_assignee_dates"`
	Assignee    *userRecord    `gorm:"foreignKey:AssigneeID"`
	CreatedBy   string         `gorm:"size:64;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string { return "tasks" }

type availabilityRecord struct {
	ID        string         `gorm:"primaryKey;size:64"`
	UserID    string         `gorm:"size:64;not null;index:idx_availabilities_user_dates"`
	User      *userRecord    `gorm:"foreignKey:UserID"`
	StartDate datatypes.Date `gorm:"not null;index:idx_availabilities_user_dates"`
	EndDate   datatypes.Date `gorm:"not null;index:idx_availabilities_user_dates"`
	Available bool           `gorm:"not null"`
	Note      string         `gorm:"not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (availabilityRecord) TableName() string { return "availabilities" }

type planningRecord struct {
	ID          string      `gorm:"primaryKey;size:64"`
	Title       string      `gorm:"size:200;not null"`
	Description string      `gorm:"not null;default:''"`
	UserID      string      `gorm:"size:64;not null;index:idx_plannings_user_start"`
	User        *userRecord `gorm:"foreignKey:UserID"`
	StartsAt    time.Time   `gorm:"not null;index:idx_plannings_user_start"`
	EndsAt      time.Time   `gorm:"not null"`
	Type        string      `gorm:"size:16;not null"`
	ProjectID   *string     `gorm:"size:64;index"`
	TaskID      *string     `gorm:"size:64;index"`
	CreatedBy   string      `gorm:"size:64;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (planningRecord) TableName() string { return "plannings" }

func toDate(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// fromDate reads a date column back as midnight UTC whatever zone the driver reports.
func fromDate(d datatypes.Date) time.Time {
	y, m, day := time.Time(d).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// optionalID stores empty ids as NULL.
func optionalID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}

func newUserRecord(u persistence.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Department:   u.Department,
		Role:         u.Role,
		CreatedAt:    utc(u.CreatedAt),
		UpdatedAt:    utc(u.UpdatedAt),
	}
}

func (r userRecord) model() persistence.User {
	return persistence.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Department:   r.Department,
		Role:         r.Role,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
	}
}

func newProjectRecord(p persistence.Project) projectRecord {
	return projectRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Client:      p.Client,
		StartDate:   toDate(p.StartDate),
		EndDate:     toDate(p.EndDate),
		Status:      p.Status,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   utc(p.CreatedAt),
		UpdatedAt:   utc(p.UpdatedAt),
		ClosedAt:    utcPtr(p.ClosedAt),
	}
}

func (r projectRecord) model() persistence.Project {
	return persistence.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Client:      r.Client,
		StartDate:   fromDate(r.StartDate),
		EndDate:     fromDate(r.EndDate),
		Status:      r.Status,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
		ClosedAt:    utcPtr(r.ClosedAt),
	}
}

func newTaskRecord(t persistence.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		StartDate:   toDate(t.StartDate),
		EndDate:     toDate(t.EndDate),
		Priority:    t.Priority,
		Status:      t.Status,
		AssigneeID:  optionalID(t.AssigneeID),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   utc(t.CreatedAt),
		UpdatedAt:   utc(t.UpdatedAt),
	}
}

func (r taskRecord) model() persistence.Task {
	return persistence.Task{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		StartDate:   fromDate(r.StartDate),
		EndDate:     fromDate(r.EndDate),
		Priority:    r.Priority,
		Status:      r.Status,
		AssigneeID:  optionalID(r.AssigneeID),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}

func newAvailabilityRecord(a persistence.Availability) availabilityRecord {
	return availabilityRecord{
		ID:        a.ID,
		UserID:    a.UserID,
		StartDate: toDate(a.StartDate),
		EndDate:   toDate(a.EndDate),
		Available: a.Available,
		Note:      a.Note,
		CreatedAt: utc(a.CreatedAt),
		UpdatedAt: utc(a.UpdatedAt),
	}
}

func (r availabilityRecord) model() persistence.Availability {
	return persistence.Availability{
		ID:        r.ID,
		UserID:    r.UserID,
		StartDate: fromDate(r.StartDate),
		EndDate:   fromDate(r.EndDate),
		Available: r.Available,
		Note:      r.Note,
		CreatedAt: utc(r.CreatedAt),
		UpdatedAt: utc(r.UpdatedAt),
	}
}

func newPlanningRecord(p persistence.Planning) planningRecord {
	return planningRecord{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		UserID:      p.UserID,
		StartsAt:    utc(p.StartsAt),
		EndsAt:      utc(p.EndsAt),
		Type:        p.Type,
		ProjectID:   optionalID(p.ProjectID),
		TaskID:      optionalID(p.TaskID),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   utc(p.CreatedAt),
		UpdatedAt:   utc(p.UpdatedAt),
	}
}

func (r planningRecord) model() persistence.Planning {
	return persistence.Planning{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		UserID:      r.UserID,
		StartsAt:    utc(r.StartsAt),
		EndsAt:      utc(r.EndsAt),
		Type:        r.Type,
		ProjectID:   optionalID(r.ProjectID),
		TaskID:      optionalID(r.TaskID),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}
