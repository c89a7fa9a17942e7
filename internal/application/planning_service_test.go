package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/interval"
)

func instants(start, end time.Time) interval.Interval {
	return interval.New(start, end)
}

func newPlanningFixture(t *testing.T) (*PlanningService, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	store.seedUser("alice", RoleEmployee)
	store.seedProject(Project{ID: "p1", Period: dates(t, "2025-03-01", "2025-03-31")})
	store.seedTask(Task{ID: "t1", ProjectID: "p1", Title: "Build", Period: dates(t, "2025-03-02", "2025-03-03")})
	return NewPlanningService(store, store, store, store, sequentialIDs("planning"), fixedNow), store
}

func TestPlanningService_Create(t *testing.T) {
	t.Parallel()

	t.Run("defaults the type and links project and task", func(t *testing.T) {
		t.Parallel()
		svc, _ := newPlanningFixture(t)

		got, err := svc.Create(context.Background(), CreatePlanningParams{
			Principal: managerPrincipal,
			Input: PlanningInput{
				Title:     "Standup",
				UserID:    "alice",
				Period:    instants(testNow, testNow.Add(15*time.Minute)),
				ProjectID: "p1",
				TaskID:    "t1",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, PlanningTypeOther, got.Type)
		assert.Equal(t, "p1", got.ProjectID)
		assert.Equal(t, "manager", got.CreatedBy)
	})

	t.Run("allows a zero length entry and overlapping entries", func(t *testing.T) {
		t.Parallel()
		svc, _ := newPlanningFixture(t)

		for i := 0; i < 2; i++ {
			_, err := svc.Create(context.Background(), CreatePlanningParams{
				Principal: managerPrincipal,
				Input:     PlanningInput{Title: "Call", UserID: "alice", Type: PlanningTypeMeeting, Period: instants(testNow, testNow)},
			})
			require.NoError(t, err)
		}
	})

	t.Run("rejects unknown references and inverted periods", func(t *testing.T) {
		t.Parallel()
		svc, _ := newPlanningFixture(t)
		period := instants(testNow, testNow.Add(time.Hour))

		_, err := svc.Create(context.Background(), CreatePlanningParams{Principal: managerPrincipal, Input: PlanningInput{Title: "x", UserID: "ghost", Period: period}})
		require.ErrorIs(t, err, ErrNotFound)

		_, err = svc.Create(context.Background(), CreatePlanningParams{Principal: managerPrincipal, Input: PlanningInput{Title: "x", UserID: "alice", Period: period, TaskID: "nope"}})
		require.ErrorIs(t, err, ErrNotFound)

		_, err = svc.Create(context.Background(), CreatePlanningParams{Principal: managerPrincipal, Input: PlanningInput{Title: "x", UserID: "alice", Period: instants(testNow, testNow.Add(-time.Minute))}})
		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("requires a planning role", func(t *testing.T) {
		t.Parallel()
		svc, store := newPlanningFixture(t)
		_, err := store.CreatePlanning(context.Background(), Planning{ID: "e1", Title: "x", UserID: "alice", Period: instants(testNow, testNow)})
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), CreatePlanningParams{Principal: employeePrincipal, Input: PlanningInput{Title: "x", UserID: "alice", Period: instants(testNow, testNow)}})
		require.ErrorIs(t, err, ErrForbidden)

		_, err = svc.Update(context.Background(), UpdatePlanningParams{Principal: employeePrincipal, PlanningID: "e1", Patch: PlanningPatch{Title: Some("y")}})
		require.ErrorIs(t, err, ErrForbidden)

		stored, err := svc.Get(context.Background(), "e1")
		require.NoError(t, err)
		assert.Equal(t, "x", stored.Title)
	})

	t.Run("validates title and type", func(t *testing.T) {
		t.Parallel()
		svc, _ := newPlanningFixture(t)

		_, err := svc.Create(context.Background(), CreatePlanningParams{Principal: managerPrincipal, Input: PlanningInput{UserID: "alice", Type: "party", Period: instants(testNow, testNow)}})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "title")
		assert.Contains(t, vErr.FieldErrors, "type")
	})
}

func TestPlanningService_Update(t *testing.T) {
	t.Parallel()
	svc, store := newPlanningFixture(t)
	_, err := store.CreatePlanning(context.Background(), Planning{
		ID: "e1", Title: "Build", UserID: "alice", Type: PlanningTypeWork, ProjectID: "p1", TaskID: "t1",
		Period: instants(testNow, testNow.Add(time.Hour)),
	})
	require.NoError(t, err)

	got, err := svc.Update(context.Background(), UpdatePlanningParams{
		Principal:  managerPrincipal,
		PlanningID: "e1",
		Patch:      PlanningPatch{TaskID: Some(""), End: Some(testNow.Add(2 * time.Hour))},
	})
	require.NoError(t, err)
	assert.Empty(t, got.TaskID)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, testNow.Add(2*time.Hour), got.Period.End)

	_, err = svc.Update(context.Background(), UpdatePlanningParams{Principal: managerPrincipal, PlanningID: "e1", Patch: PlanningPatch{ProjectID: Some("missing")}})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), UpdatePlanningParams{Principal: managerPrincipal, PlanningID: "e1", Patch: PlanningPatch{Start: Some(testNow.Add(3 * time.Hour))}})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Update(context.Background(), UpdatePlanningParams{Principal: managerPrincipal, PlanningID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlanningService_List(t *testing.T) {
	t.Parallel()
	svc, store := newPlanningFixture(t)
	for i, kind := range []PlanningType{PlanningTypeWork, PlanningTypeMeeting, PlanningTypeWork} {
		start := testNow.Add(time.Duration(i) * 24 * time.Hour)
		_, err := store.CreatePlanning(context.Background(), Planning{
			ID: string(rune('a' + i)), Title: "entry", UserID: "alice", Type: kind,
			Period: instants(start, start.Add(time.Hour)),
		})
		require.NoError(t, err)
	}

	byUser, err := svc.List(context.Background(), ListPlanningsParams{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, byUser.Items, 3)
	assert.Equal(t, "c", byUser.Items[0].ID)

	ranged, err := svc.List(context.Background(), ListPlanningsParams{UserID: "alice", Period: &interval.Interval{Start: testNow, End: testNow.Add(25 * time.Hour)}})
	require.NoError(t, err)
	require.Len(t, ranged.Items, 2)
	assert.Equal(t, "a", ranged.Items[0].ID)

	meetings, err := svc.List(context.Background(), ListPlanningsParams{Type: PlanningTypeMeeting})
	require.NoError(t, err)
	assert.Equal(t, 1, meetings.Total)

	_, err = svc.List(context.Background(), ListPlanningsParams{Type: "party"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestPlanningService_Delete(t *testing.T) {
	t.Parallel()
	svc, store := newPlanningFixture(t)
	_, err := store.CreatePlanning(context.Background(), Planning{ID: "e1", Title: "x", UserID: "alice", Period: instants(testNow, testNow)})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), employeePrincipal, "e1"), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), managerPrincipal, "e1"))
	require.ErrorIs(t, svc.Delete(context.Background(), managerPrincipal, "e1"), ErrNotFound)
	_, err = svc.Get(context.Background(), "e1")
	require.ErrorIs(t, err, ErrNotFound)
}
