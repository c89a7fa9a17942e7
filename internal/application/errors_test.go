package application

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/planning-service/internal/interval"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation failed", (&ValidationError{}).Error())

	err := &ValidationError{FieldErrors: map[string]string{"title": "required", "client": "required"}}
	assert.Equal(t, "validation failed: client, title", err.Error())
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	assert.False(t, nilErr.HasErrors())
	assert.False(t, (&ValidationError{}).HasErrors())

	vErr := &ValidationError{}
	vErr.add("name", "name is required")
	assert.True(t, vErr.HasErrors())
}

func TestConflictError_JoinsTitles(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("assign: %w", &ConflictError{Titles: []string{"Design", "Review"}})
	assert.ErrorIs(t, err, ErrConflictDetected)
	assert.Contains(t, err.Error(), "Design, Review")

	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Len(t, conflict.Titles, 2)
}

func TestRangeError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := &RangeError{
		Project: interval.New(day, day.AddDate(0, 1, 0)),
		Task:    interval.New(day.AddDate(0, 0, -1), day),
	}
	assert.ErrorIs(t, err, ErrOutOfProjectRange)
	assert.Equal(t, "out_of_project_range", ErrorKind(err))
}
