package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	svc          *TaskService
	store        *memoryStore
	availability *availabilityStub
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()
	store := newMemoryStore()
	store.seedUser("alice", RoleEmployee)
	store.seedUser("bob", RoleEmployee)
	store.seedProject(Project{ID: "p1", Name: "Website", Client: "Acme", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusActive})
	availability := &availabilityStub{available: true}
	svc := NewTaskService(store, store, store, availability, sequentialIDs("task"), fixedNow)
	return taskFixture{svc: svc, store: store, availability: availability}
}

func TestTaskService_Create(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults and stays unassigned", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		got, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{ProjectID: "p1", Title: " Design ", Period: dates(t, "2025-03-03", "2025-03-07")},
		})
		require.NoError(t, err)
		assert.Equal(t, "task-1", got.ID)
		assert.Equal(t, "Design", got.Title)
		assert.Equal(t, TaskPriorityMedium, got.Priority)
		assert.Equal(t, TaskStatusTodo, got.Status)
		assert.False(t, got.Assigned())
		assert.Equal(t, "manager", got.CreatedBy)
	})

	t.Run("accepts a period equal to the project period", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{ProjectID: "p1", Title: "All month", Period: dates(t, "2025-03-01", "2025-03-31")},
		})
		require.NoError(t, err)
	})

	t.Run("rejects a period leaving the project", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{ProjectID: "p1", Title: "Late", Period: dates(t, "2025-03-30", "2025-04-02")},
		})
		require.ErrorIs(t, err, ErrOutOfProjectRange)
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, day(t, "2025-03-31"), rangeErr.Project.End)
	})

	t.Run("rejects an inverted period", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{ProjectID: "p1", Title: "Backwards", Period: dates(t, "2025-03-07", "2025-03-03")},
		})
		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("rejects unknown and closed projects", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedProject(Project{ID: "done", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusDone})
		f.store.seedProject(Project{ID: "cancelled", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusCancelled})

		_, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{ProjectID: "missing", Title: "x", Period: dates(t, "2025-03-03", "2025-03-04")},
		})
		require.ErrorIs(t, err, ErrNotFound)

		for _, id := range []string{"done", "cancelled"} {
			_, err = f.svc.Create(context.Background(), CreateTaskParams{
				Principal: managerPrincipal,
				Input:     TaskInput{ProjectID: id, Title: "x", Period: dates(t, "2025-03-03", "2025-03-04")},
			})
			require.ErrorIs(t, err, ErrProjectClosed, id)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), CreateTaskParams{
			Principal: managerPrincipal,
			Input:     TaskInput{Priority: "critical", Period: dates(t, "2025-03-03", "2025-03-04")},
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "title")
		assert.Contains(t, vErr.FieldErrors, "priority")
		assert.Contains(t, vErr.FieldErrors, "project_id")
	})
}

func TestTaskService_Assign(t *testing.T) {
	t.Parallel()

	t.Run("assigns an available user without conflicts", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		got, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "alice", got.AssigneeID)
		assert.Equal(t, 1, f.availability.calls)
	})

	t.Run("requires the manage capability", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: employeePrincipal, TaskID: "t1", UserID: "alice"})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("reports missing tasks and users", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "missing", UserID: "alice"})
		require.ErrorIs(t, err, ErrNotFound)

		_, err = f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "ghost"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unavailable users", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.availability.available = false
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "alice"})
		require.ErrorIs(t, err, ErrUserUnavailable)

		task, err := f.store.GetTask(context.Background(), "t1")
		require.NoError(t, err)
		assert.False(t, task.Assigned())
	})

	t.Run("names every conflicting task", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})
		f.store.seedTask(Task{ID: "c1", ProjectID: "p1", Title: "Review", AssigneeID: "alice", Period: dates(t, "2025-03-12", "2025-03-14")})
		f.store.seedTask(Task{ID: "c2", ProjectID: "p1", Title: "Plan", AssigneeID: "alice", Period: dates(t, "2025-03-08", "2025-03-10")})
		f.store.seedTask(Task{ID: "c3", ProjectID: "p1", Title: "Shipped", AssigneeID: "alice", Status: TaskStatusDone, Period: dates(t, "2025-03-10", "2025-03-12")})
		f.store.seedTask(Task{ID: "c4", ProjectID: "p1", Title: "Later", AssigneeID: "alice", Period: dates(t, "2025-03-13", "2025-03-14")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "alice"})
		require.ErrorIs(t, err, ErrConflictDetected)
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{"Plan", "Review"}, conflict.Titles)
		assert.Equal(t, "conflicting tasks: Plan, Review", conflict.Error())
	})

	t.Run("does not conflict with itself", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "alice"})
		require.NoError(t, err)
	})

	t.Run("requires a user id", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1"})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("propagates availability errors", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.availability.err = errors.New("ledger offline")
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Assign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "alice"})
		require.EqualError(t, err, "ledger offline")
	})
}

func TestTaskService_Assign_ConcurrentOverlapsAdmitOne(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)

	const workers = 6
	for i := 0; i < workers; i++ {
		f.store.seedTask(Task{ID: string(rune('a'+i)) + "-task", ProjectID: "p1", Title: "Shift", Period: dates(t, "2025-03-10", "2025-03-12")})
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Assign(context.Background(), AssignTaskParams{
				Principal: managerPrincipal,
				TaskID:    string(rune('a'+i)) + "-task",
				UserID:    "alice",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflictDetected)
	}
	assert.Equal(t, 1, succeeded)
}

func TestTaskService_Reassign(t *testing.T) {
	t.Parallel()

	t.Run("lets the current assignee hand the task over", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})

		got, err := f.svc.Reassign(context.Background(), AssignTaskParams{Principal: employeePrincipal, TaskID: "t1", UserID: "bob"})
		require.NoError(t, err)
		assert.Equal(t, "bob", got.AssigneeID)
	})

	t.Run("forbids other employees", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "bob", Period: dates(t, "2025-03-10", "2025-03-12")})
		f.store.seedTask(Task{ID: "t2", ProjectID: "p1", Title: "Open", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Reassign(context.Background(), AssignTaskParams{Principal: employeePrincipal, TaskID: "t1", UserID: "alice"})
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.Reassign(context.Background(), AssignTaskParams{Principal: employeePrincipal, TaskID: "t2", UserID: "alice"})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("checks the new user like an assignment", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
		f.store.seedTask(Task{ID: "b1", ProjectID: "p1", Title: "Busy", AssigneeID: "bob", Period: dates(t, "2025-03-11", "2025-03-11")})

		_, err := f.svc.Reassign(context.Background(), AssignTaskParams{Principal: managerPrincipal, TaskID: "t1", UserID: "bob"})
		require.ErrorIs(t, err, ErrConflictDetected)
	})
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()

	t.Run("keeps absent fields", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Description: "api", Period: dates(t, "2025-03-10", "2025-03-12")})

		got, err := f.svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{Priority: Some(TaskPriorityUrgent), Description: Some("")},
		})
		require.NoError(t, err)
		assert.Equal(t, "Build", got.Title)
		assert.Empty(t, got.Description)
		assert.Equal(t, TaskPriorityUrgent, got.Priority)
	})

	t.Run("re-checks project containment", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{End: Some(day(t, "2025-04-02"))},
		})
		require.ErrorIs(t, err, ErrOutOfProjectRange)
	})

	t.Run("checks the assignee for conflicts when dates move", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
		f.store.seedTask(Task{ID: "t2", ProjectID: "p1", Title: "Review", AssigneeID: "alice", Period: dates(t, "2025-03-14", "2025-03-15")})

		_, err := f.svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{End: Some(day(t, "2025-03-14"))},
		})
		require.ErrorIs(t, err, ErrConflictDetected)

		_, err = f.svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{Title: Some("Build v2")},
		})
		require.NoError(t, err)
	})

	t.Run("reads the assignee inside the transaction when dates move", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore()
		store.seedUser("alice", RoleEmployee)
		store.seedProject(Project{ID: "p1", Name: "Website", Client: "Acme", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusActive})
		store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
		users := &countingUsers{memoryStore: store}
		svc := NewTaskService(store, store, users, &availabilityStub{available: true}, sequentialIDs("task"), fixedNow)

		_, err := svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{Title: Some("Build v2")},
		})
		require.NoError(t, err)
		assert.Empty(t, users.looked())

		_, err = svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{End: Some(day(t, "2025-03-13"))},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, users.looked())
	})

	t.Run("retries under the new assignee's lock after a concurrent reassign", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore()
		store.seedUser("alice", RoleEmployee)
		store.seedUser("bob", RoleEmployee)
		store.seedProject(Project{ID: "p1", Name: "Website", Client: "Acme", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusActive})
		store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
		locks := NewUserLocks()
		tasks := &shiftingTasks{memoryStore: store, locks: locks, shifts: []string{"bob"}}
		svc := NewTaskServiceWithLogger(tasks, store, store, &availabilityStub{available: true}, nil, locks, sequentialIDs("task"), fixedNow, nil)

		got, err := svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{End: Some(day(t, "2025-03-13"))},
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", got.AssigneeID)
		assert.Equal(t, 3, tasks.reads)
		assert.Equal(t, []string{"bob"}, tasks.conflictChecks)
		assert.Equal(t, []bool{true}, tasks.lockedChecks)
		assert.Zero(t, locks.size())
	})

	t.Run("gives up when the assignee keeps changing", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore()
		store.seedUser("alice", RoleEmployee)
		store.seedUser("bob", RoleEmployee)
		store.seedProject(Project{ID: "p1", Name: "Website", Client: "Acme", Period: dates(t, "2025-03-01", "2025-03-31"), Status: ProjectStatusActive})
		store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
		locks := NewUserLocks()
		tasks := &shiftingTasks{memoryStore: store, locks: locks, shifts: []string{"bob", "alice", "bob", "alice"}}
		svc := NewTaskServiceWithLogger(tasks, store, store, &availabilityStub{available: true}, nil, locks, sequentialIDs("task"), fixedNow, nil)

		_, err := svc.Update(context.Background(), UpdateTaskParams{
			Principal: managerPrincipal,
			TaskID:    "t1",
			Patch:     TaskPatch{End: Some(day(t, "2025-03-13"))},
		})
		require.ErrorIs(t, err, ErrConflictDetected)
		assert.Empty(t, tasks.conflictChecks)
		assert.Equal(t, day(t, "2025-03-12"), store.tasks["t1"].Period.End)
	})

	t.Run("forbids employees and reports missing tasks", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

		_, err := f.svc.Update(context.Background(), UpdateTaskParams{Principal: employeePrincipal, TaskID: "t1"})
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.Update(context.Background(), UpdateTaskParams{Principal: managerPrincipal, TaskID: "missing"})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTaskService_ChangeStatus(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Status: TaskStatusDone, Period: dates(t, "2025-03-10", "2025-03-12")})

	got, err := f.svc.ChangeStatus(context.Background(), ChangeTaskStatusParams{Principal: employeePrincipal, TaskID: "t1", Status: TaskStatusTodo})
	require.NoError(t, err)
	assert.Equal(t, TaskStatusTodo, got.Status)

	_, err = f.svc.ChangeStatus(context.Background(), ChangeTaskStatusParams{Principal: employeePrincipal, TaskID: "t1", Status: "blocked"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = f.svc.ChangeStatus(context.Background(), ChangeTaskStatusParams{Principal: employeePrincipal, TaskID: "missing", Status: TaskStatusDone})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTaskService_Delete(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-10", "2025-03-12")})

	require.ErrorIs(t, f.svc.Delete(context.Background(), managerPrincipal, "t1"), ErrForbidden)
	require.NoError(t, f.svc.Delete(context.Background(), adminPrincipal, "t1"))
	require.ErrorIs(t, f.svc.Delete(context.Background(), adminPrincipal, "t1"), ErrNotFound)
}

func TestTaskService_ListAndCount(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	f.store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "A", AssigneeID: "alice", Period: dates(t, "2025-03-10", "2025-03-12")})
	f.store.seedTask(Task{ID: "t2", ProjectID: "p1", Title: "B", Status: TaskStatusDone, Period: dates(t, "2025-03-02", "2025-03-03")})
	f.store.seedTask(Task{ID: "t3", ProjectID: "p2", Title: "C", Period: dates(t, "2025-03-20", "2025-03-25")})

	page, err := f.svc.List(context.Background(), ListTasksParams{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "t2", page.Items[0].ID)

	page, err = f.svc.List(context.Background(), ListTasksParams{Period: datePtr(t, "2025-03-01", "2025-03-12")})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.List(context.Background(), ListTasksParams{AssigneeID: "alice", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasNext)

	count, err := f.svc.CountByStatus(context.Background(), TaskStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
