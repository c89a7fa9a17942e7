package http

import (
	"context"
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Projects       *ProjectHandler
	Tasks          *TaskHandler
	Availabilities *AvailabilityHandler
	Plannings      *PlanningHandler

	// Tokens authenticates every route except /healthz and /api/auth/*.
	Tokens TokenValidator
	// Health reports store connectivity for /healthz. Nil always reports ok.
	Health func(ctx context.Context) error

	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireAuth := RequireAuth(cfg.Tokens, cfg.Logger)
	protected := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(handler))
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health, newResponder(cfg.Logger)))

	if cfg.Auth != nil {
		mux.HandleFunc("POST /api/auth/register", cfg.Auth.Register)
		mux.HandleFunc("POST /api/auth/login", cfg.Auth.Login)
	}

	if cfg.Users != nil {
		protected("GET /api/profile", cfg.Users.GetProfile)
		protected("PUT /api/profile", cfg.Users.UpdateProfile)
		protected("GET /api/users", cfg.Users.List)
	}

	if cfg.Projects != nil {
		protected("GET /api/projects", cfg.Projects.List)
		protected("POST /api/projects", cfg.Projects.Create)
		protected("GET /api/projects/count", cfg.Projects.Count)
		protected("GET /api/projects/{id}", cfg.Projects.Get)
		protected("PUT /api/projects/{id}", cfg.Projects.Update)
		protected("DELETE /api/projects/{id}", cfg.Projects.Delete)
		protected("POST /api/projects/{id}/close", cfg.Projects.Close)
	}

	if cfg.Tasks != nil {
		protected("GET /api/tasks", cfg.Tasks.List)
		protected("POST /api/tasks", cfg.Tasks.Create)
		protected("GET /api/tasks/count", cfg.Tasks.Count)
		protected("GET /api/tasks/{id}", cfg.Tasks.Get)
		protected("PUT /api/tasks/{id}", cfg.Tasks.Update)
		protected("DELETE /api/tasks/{id}", cfg.Tasks.Delete)
		protected("PUT /api/tasks/{id}/status", cfg.Tasks.ChangeStatus)
		protected("PUT /api/tasks/{id}/assign", cfg.Tasks.Assign)
		protected("PUT /api/tasks/{id}/reassign", cfg.Tasks.Reassign)
	}

	if cfg.Availabilities != nil {
		protected("GET /api/availabilities", cfg.Availabilities.List)
		protected("POST /api/availabilities", cfg.Availabilities.Create)
		protected("GET /api/availabilities/check", cfg.Availabilities.Check)
		protected("GET /api/availabilities/{id}", cfg.Availabilities.Get)
		protected("PUT /api/availabilities/{id}", cfg.Availabilities.Update)
		protected("DELETE /api/availabilities/{id}", cfg.Availabilities.Delete)
	}

	if cfg.Plannings != nil {
		protected("GET /api/plannings", cfg.Plannings.List)
		protected("POST /api/plannings", cfg.Plannings.Create)
		protected("GET /api/plannings/{id}", cfg.Plannings.Get)
		protected("PUT /api/plannings/{id}", cfg.Plannings.Update)
		protected("DELETE /api/plannings/{id}", cfg.Plannings.Delete)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func healthHandler(check func(ctx context.Context) error, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
