package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TaskDirectory resolves tasks referenced by planning entries.
type TaskDirectory interface {
	GetTask(ctx context.Context, id string) (Task, error)
}

// PlanningService keeps the planning journal. Entries only need start <= end;
// they are never checked for overlap or against their project and task.
type PlanningService struct {
	plannings   PlanningRepository
	users       UserDirectory
	projects    ProjectDirectory
	tasks       TaskDirectory
	tx          Transactor
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPlanningService constructs a planning service without a transactor.
func NewPlanningService(plannings PlanningRepository, users UserDirectory, projects ProjectDirectory, tasks TaskDirectory, idGenerator func() string, now func() time.Time) *PlanningService {
	return NewPlanningServiceWithLogger(plannings, users, projects, tasks, nil, idGenerator, now, nil)
}

// NewPlanningServiceWithLogger constructs a planning service with a specified logger.
func NewPlanningServiceWithLogger(plannings PlanningRepository, users UserDirectory, projects ProjectDirectory, tasks TaskDirectory, tx Transactor, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PlanningService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PlanningService{
		plannings:   plannings,
		users:       users,
		projects:    projects,
		tasks:       tasks,
		tx:          tx,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PlanningService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlanningService", operation, attrs...)
}

func (s *PlanningService) configured() error {
	if s == nil {
		return fmt.Errorf("PlanningService is nil")
	}
	if s.plannings == nil || s.users == nil || s.projects == nil || s.tasks == nil {
		return fmt.Errorf("planning repositories not configured")
	}
	return nil
}

// Create records a calendar entry for a user.
func (s *PlanningService) Create(ctx context.Context, params CreatePlanningParams) (planning Planning, err error) {
	if err = s.configured(); err != nil {
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"user_id", input.UserID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create planning", "planning created", "planning_id", planning.ID)
	}()

	if !params.Principal.Can(CapabilityManagePlannings) {
		err = ErrForbidden
		return
	}

	if input.Type == "" {
		input.Type = PlanningTypeOther
	}
	if vErr := validatePlanningFields(input.Title, input.Type); vErr.HasErrors() {
		err = vErr
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		if _, err := s.users.GetUser(ctx, input.UserID); err != nil {
			return mapRepoError(err)
		}
		if !input.Period.IsValid() {
			return ErrInvalidInterval
		}
		if err := s.resolveLinks(ctx, input.ProjectID, input.TaskID); err != nil {
			return err
		}

		now := s.now()
		created, err := s.plannings.CreatePlanning(ctx, Planning{
			ID:          s.idGenerator(),
			Title:       strings.TrimSpace(input.Title),
			Description: strings.TrimSpace(input.Description),
			UserID:      input.UserID,
			Period:      input.Period,
			Type:        input.Type,
			ProjectID:   strings.TrimSpace(input.ProjectID),
			TaskID:      strings.TrimSpace(input.TaskID),
			CreatedBy:   params.Principal.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return mapRepoError(err)
		}
		planning = created
		return nil
	})
	if err != nil {
		planning = Planning{}
	}
	return
}

// Update applies the present fields of the patch. A present empty project or
// task id removes the link.
func (s *PlanningService) Update(ctx context.Context, params UpdatePlanningParams) (planning Planning, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"planning_id", params.PlanningID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update planning", "planning updated")
	}()

	if !params.Principal.Can(CapabilityManagePlannings) {
		err = ErrForbidden
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.plannings.GetPlanning(ctx, params.PlanningID)
		if err != nil {
			return mapRepoError(err)
		}

		patched := applyPlanningPatch(current, params.Patch)
		if vErr := validatePlanningFields(patched.Title, patched.Type); vErr.HasErrors() {
			return vErr
		}
		if !patched.Period.IsValid() {
			return ErrInvalidInterval
		}

		projectID, _ := params.Patch.ProjectID.Get()
		taskID, _ := params.Patch.TaskID.Get()
		if err := s.resolveLinks(ctx, strings.TrimSpace(projectID), strings.TrimSpace(taskID)); err != nil {
			return err
		}

		patched.UpdatedAt = s.now()
		updated, err := s.plannings.UpdatePlanning(ctx, patched)
		if err != nil {
			return mapRepoError(err)
		}
		planning = updated
		return nil
	})
	if err != nil {
		planning = Planning{}
	}
	return
}

func applyPlanningPatch(current Planning, patch PlanningPatch) Planning {
	if title, ok := patch.Title.Get(); ok {
		current.Title = strings.TrimSpace(title)
	}
	if description, ok := patch.Description.Get(); ok {
		current.Description = strings.TrimSpace(description)
	}
	if start, ok := patch.Start.Get(); ok {
		current.Period.Start = start
	}
	if end, ok := patch.End.Get(); ok {
		current.Period.End = end
	}
	if kind, ok := patch.Type.Get(); ok {
		current.Type = kind
	}
	if projectID, ok := patch.ProjectID.Get(); ok {
		current.ProjectID = strings.TrimSpace(projectID)
	}
	if taskID, ok := patch.TaskID.Get(); ok {
		current.TaskID = strings.TrimSpace(taskID)
	}
	return current
}

// resolveLinks fails with ErrNotFound when a non-empty project or task id does not resolve.
func (s *PlanningService) resolveLinks(ctx context.Context, projectID, taskID string) error {
	if projectID != "" {
		if _, err := s.projects.GetProject(ctx, projectID); err != nil {
			return fmt.Errorf("project %s: %w", projectID, mapRepoError(err))
		}
	}
	if taskID != "" {
		if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
			return fmt.Errorf("task %s: %w", taskID, mapRepoError(err))
		}
	}
	return nil
}

// Delete removes an entry.
func (s *PlanningService) Delete(ctx context.Context, principal Principal, planningID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"planning_id", planningID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete planning", "planning deleted")
	}()

	if !principal.Can(CapabilityManagePlannings) {
		return ErrForbidden
	}

	if err = s.plannings.DeletePlanning(ctx, planningID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Get returns a single entry.
func (s *PlanningService) Get(ctx context.Context, planningID string) (Planning, error) {
	if err := s.configured(); err != nil {
		return Planning{}, err
	}
	planning, err := s.plannings.GetPlanning(ctx, planningID)
	if err != nil {
		return Planning{}, mapRepoError(err)
	}
	return planning, nil
}

// List returns a page of entries. A listing narrowed to a user and nothing
// else is ordered newest first; every other listing is chronological.
func (s *PlanningService) List(ctx context.Context, params ListPlanningsParams) (Page[Planning], error) {
	if err := s.configured(); err != nil {
		return Page[Planning]{}, err
	}
	if params.Period != nil && !params.Period.IsValid() {
		return Page[Planning]{}, ErrInvalidInterval
	}
	if params.Type != "" && !params.Type.Valid() {
		vErr := &ValidationError{}
		vErr.add("type", "unknown planning type")
		return Page[Planning]{}, vErr
	}

	filter := PlanningFilter{
		UserID:    params.UserID,
		ProjectID: params.ProjectID,
		TaskID:    params.TaskID,
		Type:      params.Type,
		Period:    params.Period,
	}
	filter.NewestFirst = filter.UserID != "" && filter.ProjectID == "" && filter.TaskID == "" && filter.Type == "" && filter.Period == nil

	items, err := s.plannings.ListPlannings(ctx, filter)
	if err != nil {
		return Page[Planning]{}, mapRepoError(err)
	}
	return Paginate(items, params.Page, params.PageSize), nil
}

func validatePlanningFields(title string, kind PlanningType) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(title) == "" {
		vErr.add("title", "title is required")
	}
	if !kind.Valid() {
		vErr.add("type", "type must be one of meeting, work, training, leave, absence, other")
	}
	return vErr
}
