package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTokens maps bearer tokens to principals.
type fakeTokens map[string]application.Principal

func (f fakeTokens) ValidateToken(_ context.Context, token string) (application.Principal, error) {
	principal, ok := f[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

var testTokens = fakeTokens{
	"admin-token":    {UserID: "admin", Role: application.RoleAdmin},
	"manager-token":  {UserID: "manager", Role: application.RoleManager},
	"employee-token": {UserID: "alice", Role: application.RoleEmployee},
}

type fakeAuth struct {
	login func(ctx context.Context, params application.LoginParams) (application.LoginResult, error)
}

func (f fakeAuth) Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error) {
	return f.login(ctx, params)
}

func (fakeAuth) IssueToken(user application.User) (application.LoginResult, error) {
	return application.LoginResult{User: user, Token: "issued-" + user.ID, ExpiresAt: testNow.Add(time.Hour)}, nil
}

type fakeUsers struct {
	register      func(ctx context.Context, params application.RegisterParams) (application.User, error)
	updateProfile func(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	list          func(ctx context.Context, page, pageSize int) (application.Page[application.User], error)
}

func (f fakeUsers) Register(ctx context.Context, params application.RegisterParams) (application.User, error) {
	return f.register(ctx, params)
}

func (fakeUsers) GetProfile(_ context.Context, principal application.Principal) (application.User, error) {
	return application.User{ID: principal.UserID, Username: principal.UserID, Role: principal.Role, FirstName: "Alice", LastName: "Martin"}, nil
}

func (f fakeUsers) UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error) {
	return f.updateProfile(ctx, params)
}

func (f fakeUsers) List(ctx context.Context, page, pageSize int) (application.Page[application.User], error) {
	return f.list(ctx, page, pageSize)
}

type fakeProjects struct {
	create func(ctx context.Context, params application.CreateProjectParams) (application.Project, error)
	update func(ctx context.Context, params application.UpdateProjectParams) (application.Project, error)
	list   func(ctx context.Context, params application.ListProjectsParams) (application.Page[application.Project], error)
}

func (f fakeProjects) Create(ctx context.Context, params application.CreateProjectParams) (application.Project, error) {
	return f.create(ctx, params)
}

func (f fakeProjects) Update(ctx context.Context, params application.UpdateProjectParams) (application.Project, error) {
	return f.update(ctx, params)
}

func (fakeProjects) Close(_ context.Context, _ application.Principal, projectID string) (application.Project, error) {
	closedAt := testNow
	return application.Project{ID: projectID, Status: application.ProjectStatusDone, ClosedAt: &closedAt}, nil
}

func (fakeProjects) Delete(context.Context, application.Principal, string) error {
	return nil
}

func (fakeProjects) Get(_ context.Context, projectID string) (application.Project, error) {
	if projectID != "p-1" {
		return application.Project{}, application.ErrNotFound
	}
	return application.Project{ID: "p-1", Name: "Apollo", Status: application.ProjectStatusActive}, nil
}

func (f fakeProjects) List(ctx context.Context, params application.ListProjectsParams) (application.Page[application.Project], error) {
	return f.list(ctx, params)
}

func (fakeProjects) CountByStatus(_ context.Context, status application.ProjectStatus) (int, error) {
	if !status.Valid() {
		return 0, &application.ValidationError{FieldErrors: map[string]string{"status": "unknown status"}}
	}
	return 3, nil
}

type fakeTasks struct {
	create       func(ctx context.Context, params application.CreateTaskParams) (application.Task, error)
	changeStatus func(ctx context.Context, params application.ChangeTaskStatusParams) (application.Task, error)
	assign       func(ctx context.Context, params application.AssignTaskParams) (application.Task, error)
	list         func(ctx context.Context, params application.ListTasksParams) (application.Page[application.Task], error)
}

func (f fakeTasks) Create(ctx context.Context, params application.CreateTaskParams) (application.Task, error) {
	return f.create(ctx, params)
}

func (fakeTasks) Update(_ context.Context, params application.UpdateTaskParams) (application.Task, error) {
	return application.Task{ID: params.TaskID}, nil
}

func (f fakeTasks) ChangeStatus(ctx context.Context, params application.ChangeTaskStatusParams) (application.Task, error) {
	return f.changeStatus(ctx, params)
}

func (f fakeTasks) Assign(ctx context.Context, params application.AssignTaskParams) (application.Task, error) {
	return f.assign(ctx, params)
}

func (f fakeTasks) Reassign(ctx context.Context, params application.AssignTaskParams) (application.Task, error) {
	return f.assign(ctx, params)
}

func (fakeTasks) Delete(_ context.Context, principal application.Principal, _ string) error {
	if !principal.Can(application.CapabilityDeleteTasks) {
		return application.ErrForbidden
	}
	return nil
}

func (fakeTasks) Get(_ context.Context, taskID string) (application.Task, error) {
	return application.Task{ID: taskID}, nil
}

func (f fakeTasks) List(ctx context.Context, params application.ListTasksParams) (application.Page[application.Task], error) {
	return f.list(ctx, params)
}

func (fakeTasks) CountByStatus(context.Context, application.TaskStatus) (int, error) {
	return 0, nil
}

type fakeAvailabilities struct {
	create func(ctx context.Context, params application.CreateAvailabilityParams) (application.Availability, error)
	update func(ctx context.Context, params application.UpdateAvailabilityParams) (application.Availability, error)
	check  func(ctx context.Context, userID string, period interval.Interval) (application.AvailabilityCheck, error)
}

func (f fakeAvailabilities) Create(ctx context.Context, params application.CreateAvailabilityParams) (application.Availability, error) {
	return f.create(ctx, params)
}

func (f fakeAvailabilities) Update(ctx context.Context, params application.UpdateAvailabilityParams) (application.Availability, error) {
	return f.update(ctx, params)
}

func (fakeAvailabilities) Delete(context.Context, application.Principal, string) error {
	return nil
}

func (fakeAvailabilities) Get(_ context.Context, id string) (application.Availability, error) {
	return application.Availability{ID: id}, nil
}

func (fakeAvailabilities) List(context.Context, application.ListAvailabilitiesParams) (application.Page[application.Availability], error) {
	return application.Paginate([]application.Availability{}, 1, 0), nil
}

func (f fakeAvailabilities) Check(ctx context.Context, userID string, period interval.Interval) (application.AvailabilityCheck, error) {
	return f.check(ctx, userID, period)
}

type fakePlannings struct {
	create func(ctx context.Context, params application.CreatePlanningParams) (application.Planning, error)
	update func(ctx context.Context, params application.UpdatePlanningParams) (application.Planning, error)
	list   func(ctx context.Context, params application.ListPlanningsParams) (application.Page[application.Planning], error)
}

func (f fakePlannings) Create(ctx context.Context, params application.CreatePlanningParams) (application.Planning, error) {
	return f.create(ctx, params)
}

func (f fakePlannings) Update(ctx context.Context, params application.UpdatePlanningParams) (application.Planning, error) {
	return f.update(ctx, params)
}

func (fakePlannings) Delete(context.Context, application.Principal, string) error {
	return nil
}

func (fakePlannings) Get(_ context.Context, id string) (application.Planning, error) {
	return application.Planning{ID: id}, nil
}

func (f fakePlannings) List(ctx context.Context, params application.ListPlanningsParams) (application.Page[application.Planning], error) {
	return f.list(ctx, params)
}

type services struct {
	auth           fakeAuth
	users          fakeUsers
	projects       fakeProjects
	tasks          fakeTasks
	availabilities fakeAvailabilities
	plannings      fakePlannings
	health         func(ctx context.Context) error
}

func newTestRouter(svc services) http.Handler {
	logger := discardLogger()
	return NewRouter(RouterConfig{
		Auth:           NewAuthHandler(svc.auth, svc.users, logger),
		Users:          NewUserHandler(svc.users, logger),
		Projects:       NewProjectHandler(svc.projects, logger),
		Tasks:          NewTaskHandler(svc.tasks, logger),
		Availabilities: NewAvailabilityHandler(svc.availabilities, logger),
		Plannings:      NewPlanningHandler(svc.plannings, logger),
		Tokens:         testTokens,
		Health:         svc.health,
		Logger:         logger,
		Middleware:     []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
}

func doRequest(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
