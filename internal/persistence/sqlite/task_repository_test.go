package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/persistence"
)

func newTask(t *testing.T, id, title, start, end string, assignee *string, status string) persistence.Task {
	t.Helper()
	return persistence.Task{
		ID:         id,
		ProjectID:  "p-1",
		Title:      title,
		StartDate:  mustDate(t, start),
		EndDate:    mustDate(t, end),
		Priority:   "medium",
		Status:     status,
		AssigneeID: assignee,
		CreatedBy:  "u-admin",
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func TestTaskRepository_CreateGetUpdate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedUser(t, store, "u-1")
	repo := NewTaskRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateTask(ctx, newTask(t, "t-1", "Design", "2024-03-01", "2024-03-10", nil, "todo")))

	got, err := repo.GetTask(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, got.AssigneeID)
	assert.Equal(t, "Design", got.Title)

	assignee := "u-1"
	got.AssigneeID = &assignee
	got.Status = "in_progress"
	require.NoError(t, repo.UpdateTask(ctx, got))

	got, err = repo.GetTask(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, "u-1", *got.AssigneeID)
	assert.Equal(t, "in_progress", got.Status)
}

func TestTaskRepository_CreateTask_UnknownAssignee(t *testing.T) {
	t.Parallel()

	repo := NewTaskRepository(newTestStore(t))
	ghost := "ghost"
	err := repo.CreateTask(context.Background(), newTask(t, "t-1", "Design", "2024-03-01", "2024-03-10", &ghost, "todo"))
	assert.ErrorIs(t, err, persistence.ErrForeignKeyViolation)
}

func TestTaskRepository_ListConflictingTasks(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedUser(t, store, "u-1")
	seedUser(t, store, "u-2")
	repo := NewTaskRepository(store)
	ctx := context.Background()

	u1, u2 := "u-1", "u-2"
	for _, task := range []persistence.Task{
		newTask(t, "t-1", "Design", "2024-03-01", "2024-03-10", &u1, "todo"),
		newTask(t, "t-2", "Build", "2024-03-10", "2024-03-20", &u1, "in_progress"),
		newTask(t, "t-3", "Shipped", "2024-03-01", "2024-03-31", &u1, "done"),
		newTask(t, "t-4", "Other", "2024-03-01", "2024-03-31", &u2, "todo"),
		newTask(t, "t-5", "Later", "2024-04-01", "2024-04-10", &u1, "todo"),
	} {
		require.NoError(t, repo.CreateTask(ctx, task))
	}

	conflicts, err := repo.ListConflictingTasks(ctx, persistence.ConflictQuery{
		AssigneeID:    "u-1",
		Start:         mustDate(t, "2024-03-05"),
		End:           mustDate(t, "2024-03-31"),
		ExcludeTaskID: "t-2",
		DoneStatus:    "done",
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "t-1", conflicts[0].ID)

	touching, err := repo.ListConflictingTasks(ctx, persistence.ConflictQuery{
		AssigneeID: "u-1",
		Start:      mustDate(t, "2024-03-20"),
		End:        mustDate(t, "2024-04-01"),
		DoneStatus: "done",
	})
	require.NoError(t, err)
	require.Len(t, touching, 2)
	assert.Equal(t, "t-2", touching[0].ID)
	assert.Equal(t, "t-5", touching[1].ID)
}

func TestTaskRepository_ListTasks_Filters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedUser(t, store, "u-1")
	repo := NewTaskRepository(store)
	ctx := context.Background()

	u1 := "u-1"
	require.NoError(t, repo.CreateTask(ctx, newTask(t, "t-1", "A", "2024-03-01", "2024-03-10", &u1, "todo")))
	require.NoError(t, repo.CreateTask(ctx, newTask(t, "t-2", "B", "2024-03-05", "2024-04-10", nil, "todo")))
	other := newTask(t, "t-3", "C", "2024-03-02", "2024-03-03", nil, "done")
	other.ProjectID = "p-2"
	require.NoError(t, repo.CreateTask(ctx, other))

	byProject, err := repo.ListTasks(ctx, persistence.TaskFilter{ProjectID: "p-1"})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	byAssignee, err := repo.ListTasks(ctx, persistence.TaskFilter{AssigneeID: "u-1"})
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, "t-1", byAssignee[0].ID)

	from, to := mustDate(t, "2024-03-01"), mustDate(t, "2024-03-31")
	inMarch, err := repo.ListTasks(ctx, persistence.TaskFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, inMarch, 2)
	assert.Equal(t, "t-1", inMarch[0].ID)
	assert.Equal(t, "t-3", inMarch[1].ID)

	done, err := repo.CountTasksByStatus(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, 1, done)
}

func TestTaskRepository_DeleteTask(t *testing.T) {
	t.Parallel()

	repo := NewTaskRepository(newTestStore(t))
	ctx := context.Background()
	require.NoError(t, repo.CreateTask(ctx, newTask(t, "t-1", "A", "2024-03-01", "2024-03-10", nil, "todo")))

	require.NoError(t, repo.DeleteTask(ctx, "t-1"))
	_, err := repo.GetTask(ctx, "t-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
