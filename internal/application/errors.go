package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/planning-service/internal/interval"
)

var (
	// ErrNotFound is returned when a referenced entity id does not resolve.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidInterval is returned when a start comes after its end.
	ErrInvalidInterval = errors.New("application: start must not be after end")
	// ErrOverlapConflict is returned when an availability overlaps another one of the same user.
	ErrOverlapConflict = errors.New("application: period overlaps an existing availability")
	// ErrOutOfProjectRange is returned when a task period leaves its project period.
	ErrOutOfProjectRange = errors.New("application: task period is outside the project period")
	// ErrProjectClosed is returned when a task is created against a terminal project.
	ErrProjectClosed = errors.New("application: project is closed")
	// ErrUserUnavailable is returned when an assignment target is not available.
	ErrUserUnavailable = errors.New("application: user is not available")
	// ErrConflictDetected is returned when an assignment target is already booked.
	ErrConflictDetected = errors.New("application: conflicting tasks")
	// ErrForbidden is returned when the acting principal lacks the role or ownership required.
	ErrForbidden = errors.New("application: forbidden")
	// ErrUnauthorized is returned when no valid identity accompanies a request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when a login attempt fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ConflictError names the tasks that block an assignment.
type ConflictError struct {
	Titles []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting tasks: %s", strings.Join(e.Titles, ", "))
}

// Unwrap exposes ErrConflictDetected to errors.Is.
func (e *ConflictError) Unwrap() error {
	return ErrConflictDetected
}

// RangeError reports a task period that does not fit its project.
type RangeError struct {
	Project interval.Interval
	Task    interval.Interval
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("task period %s is outside project period %s", e.Task, e.Project)
}

// Unwrap exposes ErrOutOfProjectRange to errors.Is.
func (e *RangeError) Unwrap() error {
	return ErrOutOfProjectRange
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
