package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/config"
	httptransport "github.com/example/planning-service/internal/http"
)

type services struct {
	users          *application.UserService
	auth           *application.AuthService
	projects       *application.ProjectService
	tasks          *application.TaskService
	availabilities *application.AvailabilityService
	plannings      *application.PlanningService
}

func newIDGenerator() func() string {
	return uuid.NewString
}

// buildServices wires the application services over the repositories of b.
// Task assignment and availability writes share one set of per-user locks.
func buildServices(b *backend, cfg config.Config, now func() time.Time, logger *slog.Logger) *services {
	idGenerator := newIDGenerator()
	locks := application.NewUserLocks()

	userRepo := newUserRepositoryAdapter(b.users)
	projectRepo := newProjectRepositoryAdapter(b.projects)
	taskRepo := newTaskRepositoryAdapter(b.tasks)
	availabilityRepo := newAvailabilityRepositoryAdapter(b.availabilities)
	planningRepo := newPlanningRepositoryAdapter(b.plannings)

	availabilities := application.NewAvailabilityServiceWithLogger(availabilityRepo, userRepo, b.tx, locks, idGenerator, now, logger)
	if cfg.AvailabilityCacheTTL > 0 {
		availabilities.EnableCheckCache(cfg.AvailabilityCacheTTL)
	}

	return &services{
		users:          application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger),
		auth:           application.NewAuthServiceWithLogger(userRepo, nil, []byte(cfg.JWTSecret), cfg.TokenTTL, idGenerator, now, logger),
		projects:       application.NewProjectServiceWithLogger(projectRepo, b.tx, idGenerator, now, logger),
		tasks:          application.NewTaskServiceWithLogger(taskRepo, projectRepo, userRepo, availabilities, b.tx, locks, idGenerator, now, logger),
		availabilities: availabilities,
		plannings:      application.NewPlanningServiceWithLogger(planningRepo, userRepo, projectRepo, taskRepo, b.tx, idGenerator, now, logger),
	}
}

func newHandler(svc *services, b *backend, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(svc.auth, svc.users, logger),
		Users:          httptransport.NewUserHandler(svc.users, logger),
		Projects:       httptransport.NewProjectHandler(svc.projects, logger),
		Tasks:          httptransport.NewTaskHandler(svc.tasks, logger),
		Availabilities: httptransport.NewAvailabilityHandler(svc.availabilities, logger),
		Plannings:      httptransport.NewPlanningHandler(svc.plannings, logger),
		Tokens:         svc.auth,
		Health:         b.ping,
		Logger:         logger,
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}
