package persistence

import "time"

// User represents an account that can own availabilities and receive tasks.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Department   string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Project is a dated container for tasks.
type Project struct {
	ID          string
	Name        string
	Description string
	Client      string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// Task is a unit of work inside a project, optionally assigned to a user.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Priority    string
	Status      string
	AssigneeID  *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Availability is a dated window during which a user is (or is not) available.
type Availability struct {
	ID        string
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Available bool
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Planning is a calendar entry for a user.
type Planning struct {
	ID          string
	Title       string
	Description string
	UserID      string
	StartsAt    time.Time
	EndsAt      time.Time
	Type        string
	ProjectID   *string
	TaskID      *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
