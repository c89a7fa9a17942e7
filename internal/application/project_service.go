package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProjectService manages the project lifecycle.
type ProjectService struct {
	projects    ProjectRepository
	tx          Transactor
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProjectService constructs a project service without a transactor.
func NewProjectService(projects ProjectRepository, idGenerator func() string, now func() time.Time) *ProjectService {
	return NewProjectServiceWithLogger(projects, nil, idGenerator, now, nil)
}

// NewProjectServiceWithLogger constructs a project service with a specified logger.
func NewProjectServiceWithLogger(projects ProjectRepository, tx Transactor, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProjectService{projects: projects, tx: tx, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ProjectService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProjectService", operation, attrs...)
}

func (s *ProjectService) configured() error {
	if s == nil {
		return fmt.Errorf("ProjectService is nil")
	}
	if s.projects == nil {
		return fmt.Errorf("project repository not configured")
	}
	return nil
}

// Create persists a new project. The status defaults to planned.
func (s *ProjectService) Create(ctx context.Context, params CreateProjectParams) (project Project, err error) {
	if err = s.configured(); err != nil {
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create project", "project created", "project_id", project.ID)
	}()

	if !params.Principal.Can(CapabilityManageProjects) {
		err = ErrForbidden
		return
	}

	if input.Status == "" {
		input.Status = ProjectStatusPlanned
	}
	if vErr := validateProjectFields(input.Name, input.Client, input.Status); vErr.HasErrors() {
		err = vErr
		return
	}
	if !input.Period.IsValid() {
		err = ErrInvalidInterval
		return
	}

	now := s.now()
	project, err = s.projects.CreateProject(ctx, Project{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Client:      strings.TrimSpace(input.Client),
		Period:      input.Period,
		Status:      input.Status,
		CreatedBy:   params.Principal.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = mapRepoError(err)
		project = Project{}
	}
	return
}

// Update applies the present fields of the patch and re-validates the period.
func (s *ProjectService) Update(ctx context.Context, params UpdateProjectParams) (project Project, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"project_id", params.ProjectID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update project", "project updated")
	}()

	if !params.Principal.Can(CapabilityManageProjects) {
		err = ErrForbidden
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.projects.GetProject(ctx, params.ProjectID)
		if err != nil {
			return mapRepoError(err)
		}

		patched := applyProjectPatch(current, params.Patch)
		if vErr := validateProjectFields(patched.Name, patched.Client, patched.Status); vErr.HasErrors() {
			return vErr
		}
		if !patched.Period.IsValid() {
			return ErrInvalidInterval
		}

		patched.UpdatedAt = s.now()
		updated, err := s.projects.UpdateProject(ctx, patched)
		if err != nil {
			return mapRepoError(err)
		}
		project = updated
		return nil
	})
	if err != nil {
		project = Project{}
	}
	return
}

func applyProjectPatch(current Project, patch ProjectPatch) Project {
	if name, ok := patch.Name.Get(); ok {
		current.Name = strings.TrimSpace(name)
	}
	if description, ok := patch.Description.Get(); ok {
		current.Description = strings.TrimSpace(description)
	}
	if client, ok := patch.Client.Get(); ok {
		current.Client = strings.TrimSpace(client)
	}
	if start, ok := patch.Start.Get(); ok {
		current.Period.Start = start
	}
	if end, ok := patch.End.Get(); ok {
		current.Period.End = end
	}
	if status, ok := patch.Status.Get(); ok {
		current.Status = status
	}
	return current
}

// Close marks the project done and stamps ClosedAt with the current time.
// Closing an already closed project stamps it again. Open tasks are not checked.
func (s *ProjectService) Close(ctx context.Context, principal Principal, projectID string) (project Project, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Close",
		"principal_id", principal.UserID,
		"project_id", projectID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to close project", "project closed")
	}()

	if !principal.Can(CapabilityManageProjects) {
		err = ErrForbidden
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.projects.GetProject(ctx, projectID)
		if err != nil {
			return mapRepoError(err)
		}

		now := s.now()
		current.Status = ProjectStatusDone
		current.ClosedAt = &now
		current.UpdatedAt = now

		updated, err := s.projects.UpdateProject(ctx, current)
		if err != nil {
			return mapRepoError(err)
		}
		project = updated
		return nil
	})
	if err != nil {
		project = Project{}
	}
	return
}

// Delete removes a project. Its tasks and plannings keep their project id.
func (s *ProjectService) Delete(ctx context.Context, principal Principal, projectID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"project_id", projectID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete project", "project deleted")
	}()

	if !principal.Can(CapabilityDeleteProjects) {
		return ErrForbidden
	}

	if err = s.projects.DeleteProject(ctx, projectID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Get returns a single project.
func (s *ProjectService) Get(ctx context.Context, projectID string) (Project, error) {
	if err := s.configured(); err != nil {
		return Project{}, err
	}
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, mapRepoError(err)
	}
	return project, nil
}

// List returns a page of projects filtered by status and containment period.
func (s *ProjectService) List(ctx context.Context, params ListProjectsParams) (Page[Project], error) {
	if err := s.configured(); err != nil {
		return Page[Project]{}, err
	}
	if params.Period != nil && !params.Period.IsValid() {
		return Page[Project]{}, ErrInvalidInterval
	}
	items, err := s.projects.ListProjects(ctx, ProjectFilter{Status: params.Status, Period: params.Period})
	if err != nil {
		return Page[Project]{}, mapRepoError(err)
	}
	return Paginate(items, params.Page, params.PageSize), nil
}

// CountByStatus counts projects in a status.
func (s *ProjectService) CountByStatus(ctx context.Context, status ProjectStatus) (int, error) {
	if err := s.configured(); err != nil {
		return 0, err
	}
	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of planned, active, done, cancelled")
		return 0, vErr
	}
	count, err := s.projects.CountProjectsByStatus(ctx, status)
	if err != nil {
		return 0, mapRepoError(err)
	}
	return count, nil
}

func validateProjectFields(name, client string, status ProjectStatus) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(client) == "" {
		vErr.add("client", "client is required")
	}
	if !status.Valid() {
		vErr.add("status", "status must be one of planned, active, done, cancelled")
	}
	return vErr
}
