package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/interval"
)

var testNow = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func dates(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	period, err := interval.ParseDates(start, end)
	require.NoError(t, err)
	return period
}

func datePtr(t *testing.T, start, end string) *interval.Interval {
	t.Helper()
	period := dates(t, start, end)
	return &period
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := interval.ParseDate(value)
	require.NoError(t, err)
	return d
}

var (
	adminPrincipal    = Principal{UserID: "admin", Role: RoleAdmin}
	managerPrincipal  = Principal{UserID: "manager", Role: RoleManager}
	employeePrincipal = Principal{UserID: "alice", Role: RoleEmployee}
)

// memoryStore implements every repository interface over maps for tests.
type memoryStore struct {
	mu             sync.Mutex
	users          map[string]UserCredentials
	availabilities map[string]Availability
	projects       map[string]Project
	tasks          map[string]Task
	plannings      map[string]Planning

	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:          make(map[string]UserCredentials),
		availabilities: make(map[string]Availability),
		projects:       make(map[string]Project),
		tasks:          make(map[string]Task),
		plannings:      make(map[string]Planning),
	}
}

func (m *memoryStore) seedUser(id string, role Role) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := User{ID: id, Username: id, Email: id + "@example.com", Role: role, CreatedAt: testNow, UpdatedAt: testNow}
	m.users[id] = UserCredentials{User: user, PasswordHash: "hash:" + id}
	return user
}

func (m *memoryStore) seedProject(project Project) Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.Status == "" {
		project.Status = ProjectStatusActive
	}
	m.projects[project.ID] = project
	return project
}

func (m *memoryStore) seedTask(task Task) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.Status == "" {
		task.Status = TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = TaskPriorityMedium
	}
	m.tasks[task.ID] = task
	return task
}

func (m *memoryStore) seedAvailability(a Availability) Availability {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availabilities[a.ID] = a
	return a
}

// users

func (m *memoryStore) CreateUser(ctx context.Context, creds UserCredentials) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	for _, existing := range m.users {
		if existing.User.Username == creds.User.Username || existing.User.Email == creds.User.Email {
			return User{}, ErrAlreadyExists
		}
	}
	m.users[creds.User.ID] = creds
	return creds.User, nil
}

func (m *memoryStore) UpdateUser(ctx context.Context, creds UserCredentials) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[creds.User.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	if creds.PasswordHash == "" {
		creds.PasswordHash = existing.PasswordHash
	}
	m.users[creds.User.ID] = creds
	return creds.User, nil
}

func (m *memoryStore) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	creds, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return creds.User, nil
}

func (m *memoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	creds, err := m.GetCredentialsByUsername(ctx, username)
	return creds.User, err
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.users {
		if creds.User.Email == email {
			return creds.User, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryStore) GetCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return UserCredentials{}, m.failWith
	}
	for _, creds := range m.users {
		if creds.User.Username == username {
			return creds, nil
		}
	}
	return UserCredentials{}, ErrNotFound
}

func (m *memoryStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, creds := range m.users {
		out = append(out, creds.User)
	}
	return out, nil
}

// availabilities

func (m *memoryStore) CreateAvailability(ctx context.Context, a Availability) (Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availabilities[a.ID] = a
	return a, nil
}

func (m *memoryStore) UpdateAvailability(ctx context.Context, a Availability) (Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availabilities[a.ID]; !ok {
		return Availability{}, ErrNotFound
	}
	m.availabilities[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAvailability(ctx context.Context, id string) (Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.availabilities[id]
	if !ok {
		return Availability{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAvailabilities(ctx context.Context, filter AvailabilityFilter) ([]Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Availability
	for _, a := range m.availabilities {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.Period != nil && !a.Period.Overlaps(*filter.Period) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out, nil
}

func (m *memoryStore) DeleteAvailability(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availabilities[id]; !ok {
		return ErrNotFound
	}
	delete(m.availabilities, id)
	return nil
}

// projects

func (m *memoryStore) CreateProject(ctx context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return p, nil
}

func (m *memoryStore) UpdateProject(ctx context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return Project{}, ErrNotFound
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memoryStore) GetProject(ctx context.Context, id string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Project
	for _, p := range m.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Period != nil && !filter.Period.Contains(p.Period) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out, nil
}

func (m *memoryStore) CountProjectsByStatus(ctx context.Context, status ProjectStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.projects {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

// tasks

func (m *memoryStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryStore) UpdateTask(ctx context.Context, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return Task{}, ErrNotFound
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryStore) GetTask(ctx context.Context, id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

func (m *memoryStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, task := range m.tasks {
		if filter.ProjectID != "" && task.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.AssigneeID != "" && task.AssigneeID != filter.AssigneeID {
			continue
		}
		if filter.Period != nil && !filter.Period.Contains(task.Period) {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].Period.Start.Before(out[j].Period.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) ListConflictingTasks(ctx context.Context, query ConflictQuery) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, task := range m.tasks {
		if task.AssigneeID != query.AssigneeID || task.ID == query.ExcludeTaskID || task.Status == TaskStatusDone {
			continue
		}
		if task.Period.Overlaps(query.Period) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out, nil
}

func (m *memoryStore) CountTasksByStatus(ctx context.Context, status TaskStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, task := range m.tasks {
		if task.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// plannings

func (m *memoryStore) CreatePlanning(ctx context.Context, p Planning) (Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plannings[p.ID] = p
	return p, nil
}

func (m *memoryStore) UpdatePlanning(ctx context.Context, p Planning) (Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plannings[p.ID]; !ok {
		return Planning{}, ErrNotFound
	}
	m.plannings[p.ID] = p
	return p, nil
}

func (m *memoryStore) GetPlanning(ctx context.Context, id string) (Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plannings[id]
	if !ok {
		return Planning{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) ListPlannings(ctx context.Context, filter PlanningFilter) ([]Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Planning
	for _, p := range m.plannings {
		switch {
		case filter.UserID != "" && p.UserID != filter.UserID,
			filter.ProjectID != "" && p.ProjectID != filter.ProjectID,
			filter.TaskID != "" && p.TaskID != filter.TaskID,
			filter.Type != "" && p.Type != filter.Type,
			filter.Period != nil && !filter.Period.Contains(p.Period):
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.NewestFirst {
			return out[i].Period.Start.After(out[j].Period.Start)
		}
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out, nil
}

func (m *memoryStore) DeletePlanning(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plannings[id]; !ok {
		return ErrNotFound
	}
	delete(m.plannings, id)
	return nil
}

// recordingTx counts transactions and can fail them.
type recordingTx struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return fn(ctx)
}

// countingUsers records every user lookup before delegating to the store.
type countingUsers struct {
	*memoryStore
	mu      sync.Mutex
	lookups []string
}

func (c *countingUsers) GetUser(ctx context.Context, id string) (User, error) {
	c.mu.Lock()
	c.lookups = append(c.lookups, id)
	c.mu.Unlock()
	return c.memoryStore.GetUser(ctx, id)
}

func (c *countingUsers) looked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lookups...)
}

// shiftingTasks reassigns the task right after each of its first reads, the
// way a concurrent Reassign would. Conflict checks record whether the
// assignee's lock was held.
type shiftingTasks struct {
	*memoryStore
	locks  *UserLocks
	shifts []string

	mu             sync.Mutex
	reads          int
	conflictChecks []string
	lockedChecks   []bool
}

func (s *shiftingTasks) GetTask(ctx context.Context, id string) (Task, error) {
	task, err := s.memoryStore.GetTask(ctx, id)
	if err != nil {
		return task, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reads < len(s.shifts) {
		s.memoryStore.mu.Lock()
		stored := s.memoryStore.tasks[id]
		stored.AssigneeID = s.shifts[s.reads]
		s.memoryStore.tasks[id] = stored
		s.memoryStore.mu.Unlock()
	}
	s.reads++
	return task, nil
}

func (s *shiftingTasks) ListConflictingTasks(ctx context.Context, query ConflictQuery) ([]Task, error) {
	s.mu.Lock()
	s.conflictChecks = append(s.conflictChecks, query.AssigneeID)
	s.lockedChecks = append(s.lockedChecks, lockHeld(s.locks, query.AssigneeID))
	s.mu.Unlock()
	return s.memoryStore.ListConflictingTasks(ctx, query)
}

func lockHeld(locks *UserLocks, userID string) bool {
	locks.mu.Lock()
	defer locks.mu.Unlock()
	_, ok := locks.locks[userID]
	return ok
}

// availabilityStub answers IsAvailable with a fixed value.
type availabilityStub struct {
	available bool
	err       error
	calls     int
}

func (a *availabilityStub) IsAvailable(ctx context.Context, userID string, period interval.Interval) (bool, error) {
	a.calls++
	return a.available, a.err
}
