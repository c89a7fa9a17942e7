package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/persistence"
)

func TestSQLiteHarnessSeedsFixtures(t *testing.T) {
	h := NewSQLiteHarness(t)
	ctx := context.Background()

	alice := NewUserFixture(WithUsername("alice"))
	project := NewProjectFixture(WithProjectCreator(alice.ID))
	open := NewTaskFixture(project.ID, WithTaskAssignee(alice.ID))
	done := NewTaskFixture(project.ID, WithTaskAssignee(alice.ID), WithTaskStatus(application.TaskStatusDone))

	h.SeedUsers(t, alice)
	h.SeedProjects(t, project)
	h.SeedTasks(t, open, done)

	got, err := h.Users.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername returned error: %v", err)
	}
	if got.ID != alice.ID || got.Role != string(application.RoleEmployee) {
		t.Fatalf("unexpected user %+v", got)
	}

	conflicts, err := h.Tasks.ListConflictingTasks(ctx, persistence.ConflictQuery{
		AssigneeID: alice.ID,
		Start:      ReferenceDay(2),
		End:        ReferenceDay(3),
		DoneStatus: string(application.TaskStatusDone),
	})
	if err != nil {
		t.Fatalf("ListConflictingTasks returned error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != open.ID {
		t.Fatalf("expected only %s to conflict, got %+v", open.ID, conflicts)
	}
}

func TestSQLiteHarnessRollsBackFailedTransactions(t *testing.T) {
	h := NewSQLiteHarness(t)
	ctx := context.Background()
	bob := NewUserFixture(WithUsername("bob"))
	h.SeedUsers(t, bob)

	window := NewAvailabilityFixture(bob.ID, Unavailable("holiday"))
	err := h.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.Availabilities.CreateAvailability(ctx, window.Persistence()); err != nil {
			return err
		}
		return h.Availabilities.CreateAvailability(ctx, window.Persistence())
	})
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}

	if _, err := h.Availabilities.GetAvailability(ctx, window.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected rolled back availability to be missing, got %v", err)
	}
}

func TestSQLiteHarnessClosesStore(t *testing.T) {
	h := NewSQLiteHarness(t)
	h.Close()
	h.Close()

	if err := h.Store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on a closed store to fail")
	}
}
