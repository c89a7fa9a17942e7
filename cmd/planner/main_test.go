package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/config"
	"github.com/example/planning-service/internal/persistence"
	"github.com/example/planning-service/internal/testfixtures"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func testConfig(dsn string) config.Config {
	return config.Config{
		HTTPPort:             8080,
		DBDriver:             config.DriverSQLite,
		SQLiteDSN:            dsn,
		JWTSecret:            testSecret,
		TokenTTL:             time.Hour,
		AdminUsername:        "admin",
		AdminPassword:        "admin-password",
		AvailabilityCacheTTL: 30 * time.Second,
	}
}

func runCommand(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	c := &cli{
		out:        &out,
		logOut:     io.Discard,
		loadConfig: func() (config.Config, error) { return cfg, nil },
		now:        func() time.Time { return testNow },
	}
	cmd := newRootCommand(c)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAdmin_IsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(filepath.Join(t.TempDir(), "planner.db"))

	_, err := runCommand(t, cfg, "migrate")
	require.NoError(t, err)

	out, err := runCommand(t, cfg, "seed-admin")
	require.NoError(t, err)
	assert.Contains(t, out, "administrator admin created")

	out, err = runCommand(t, cfg, "seed-admin")
	require.NoError(t, err)
	assert.Contains(t, out, "administrator admin already exists")
}

func TestSeedAdmin_RequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := testConfig(filepath.Join(t.TempDir(), "planner.db"))
	cfg.AdminPassword = ""

	_, err := runCommand(t, cfg, "seed-admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLANNER_ADMIN_PASSWORD")
}

func TestRootCommand_RejectsUnknownLogLevel(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, testConfig(":memory:"), "migrate", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestUserRepositoryAdapter_UpdateKeepsPasswordHash(t *testing.T) {
	t.Parallel()

	b := openTestBackend(t)
	users := newUserRepositoryAdapter(b.users)
	ctx := context.Background()

	alice := testfixtures.NewUserFixture(
		testfixtures.WithUserID("u-1"),
		testfixtures.WithUsername("alice"),
		testfixtures.WithUserPasswordHash("stored-hash"),
	)
	_, err := users.CreateUser(ctx, alice.Credentials())
	require.NoError(t, err)

	profile := alice.Application()
	profile.Department = "Ops"
	updated, err := users.UpdateUser(ctx, application.UserCredentials{User: profile})
	require.NoError(t, err)
	assert.Equal(t, "Ops", updated.Department)

	creds, err := users.GetCredentialsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "stored-hash", creds.PasswordHash)

	_, err = users.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func openTestBackend(t *testing.T) *backend {
	t.Helper()

	ctx := context.Background()
	b, err := openBackend(ctx, testConfig(":memory:"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.close() })
	require.NoError(t, b.migrate(ctx))
	return b
}

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func (c apiClient) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	decoded := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestAPI_ScheduleTasksEndToEnd(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := openTestBackend(t)
	cfg := testConfig(":memory:")
	clock := testfixtures.NewClock(testNow)
	svc := buildServices(b, cfg, clock.NowFunc(), logger)
	_, created, err := ensureAdmin(context.Background(), svc, cfg)
	require.NoError(t, err)
	require.True(t, created)

	server := httptest.NewServer(newHandler(svc, b, logger))
	t.Cleanup(server.Close)
	api := apiClient{t: t, server: server}

	status, body := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "admin-password"})
	require.Equal(t, http.StatusOK, status, body)
	adminToken := body["token"].(string)

	status, body = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "alice-password", "first_name": "Alice",
	})
	require.Equal(t, http.StatusCreated, status, body)
	aliceToken := body["token"].(string)
	aliceID := body["user"].(map[string]any)["id"].(string)

	status, _ = api.do(http.MethodPost, "/api/projects", aliceToken, map[string]string{
		"name": "Apollo", "client": "NASA", "start_date": "2025-03-01", "end_date": "2025-03-31",
	})
	require.Equal(t, http.StatusForbidden, status)

	status, body = api.do(http.MethodPost, "/api/projects", adminToken, map[string]string{
		"name": "Apollo", "client": "NASA", "start_date": "2025-03-01", "end_date": "2025-03-31",
	})
	require.Equal(t, http.StatusCreated, status, body)
	projectID := body["id"].(string)

	newTask := func(title, start, end string) string {
		status, body := api.do(http.MethodPost, "/api/tasks", adminToken, map[string]string{
			"project_id": projectID, "title": title, "start_date": start, "end_date": end,
		})
		require.Equal(t, http.StatusCreated, status, body)
		return body["id"].(string)
	}
	audit := newTask("Audit", "2025-03-03", "2025-03-07")
	review := newTask("Review", "2025-03-05", "2025-03-10")

	status, body = api.do(http.MethodPost, "/api/tasks", adminToken, map[string]string{
		"project_id": projectID, "title": "Late", "start_date": "2025-03-25", "end_date": "2025-04-04",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "OUT_OF_PROJECT_RANGE", body["error_code"])

	status, body = api.do(http.MethodPut, "/api/tasks/"+audit+"/assign", adminToken, map[string]string{"user_id": aliceID})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "USER_UNAVAILABLE", body["error_code"])

	status, body = api.do(http.MethodPost, "/api/availabilities", aliceToken, map[string]any{
		"start_date": "2025-03-01", "end_date": "2025-03-31", "available": true,
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = api.do(http.MethodPut, "/api/tasks/"+audit+"/assign", adminToken, map[string]string{"user_id": aliceID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, aliceID, body["assignee_id"])

	status, body = api.do(http.MethodPut, "/api/tasks/"+review+"/assign", adminToken, map[string]string{"user_id": aliceID})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT_DETECTED", body["error_code"])
	assert.True(t, strings.Contains(body["message"].(string), "Audit"), body["message"])

	status, body = api.do(http.MethodGet, "/api/availabilities/check?start_date=2025-03-10&end_date=2025-03-12", aliceToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["available"])

	status, body = api.do(http.MethodGet, "/api/tasks?assignee_id="+aliceID, aliceToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["total"])

	status, _ = api.do(http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
