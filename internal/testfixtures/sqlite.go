package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/planning-service/internal/persistence"
	"github.com/example/planning-service/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Store          *sqlite.Store
	Users          persistence.UserRepository
	Projects       persistence.ProjectRepository
	Tasks          persistence.TaskRepository
	Availabilities persistence.AvailabilityRepository
	Plannings      persistence.PlanningRepository
	Tx             persistence.Transactor

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "planner.db")

	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if _, err := store.Migrate(ctx, nil); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:          store,
		Users:          sqlite.NewUserRepository(store),
		Projects:       sqlite.NewProjectRepository(store),
		Tasks:          sqlite.NewTaskRepository(store),
		Availabilities: sqlite.NewAvailabilityRepository(store),
		Plannings:      sqlite.NewPlanningRepository(store),
		Tx:             store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUsers stores the user fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, u := range users {
		if err := h.Users.CreateUser(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("failed to seed user %s: %v", u.ID, err)
		}
	}
}

// SeedProjects stores the project fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedProjects(tb testing.TB, projects ...ProjectFixture) {
	tb.Helper()
	for _, p := range projects {
		if err := h.Projects.CreateProject(context.Background(), p.Persistence()); err != nil {
			tb.Fatalf("failed to seed project %s: %v", p.ID, err)
		}
	}
}

// SeedTasks stores the task fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedTasks(tb testing.TB, tasks ...TaskFixture) {
	tb.Helper()
	for _, task := range tasks {
		if err := h.Tasks.CreateTask(context.Background(), task.Persistence()); err != nil {
			tb.Fatalf("failed to seed task %s: %v", task.ID, err)
		}
	}
}
