package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/planning-service/internal/interval"
	"github.com/example/planning-service/internal/scheduler"
)

// ProjectDirectory resolves the project a task belongs to.
type ProjectDirectory interface {
	GetProject(ctx context.Context, id string) (Project, error)
}

// AvailabilityChecker answers whether a user can take work over a period.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, userID string, period interval.Interval) (bool, error)
}

// TaskService schedules tasks: it keeps them inside their project period and
// refuses assignments that would double-book a user.
type TaskService struct {
	tasks        TaskRepository
	projects     ProjectDirectory
	users        UserDirectory
	availability AvailabilityChecker
	tx           Transactor
	locks        *UserLocks
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewTaskService constructs a task service without a transactor.
func NewTaskService(tasks TaskRepository, projects ProjectDirectory, users UserDirectory, availability AvailabilityChecker, idGenerator func() string, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, projects, users, availability, nil, nil, idGenerator, now, nil)
}

// NewTaskServiceWithLogger constructs a task service. locks must be shared
// with the availability service.
func NewTaskServiceWithLogger(tasks TaskRepository, projects ProjectDirectory, users UserDirectory, availability AvailabilityChecker, tx Transactor, locks *UserLocks, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TaskService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &TaskService{
		tasks:        tasks,
		projects:     projects,
		users:        users,
		availability: availability,
		tx:           tx,
		locks:        locks,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

func (s *TaskService) configured() error {
	if s == nil {
		return fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil || s.projects == nil {
		return fmt.Errorf("task repositories not configured")
	}
	return nil
}

// Create persists an unassigned task inside an open project.
func (s *TaskService) Create(ctx context.Context, params CreateTaskParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"project_id", input.ProjectID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create task", "task created", "task_id", task.ID)
	}()

	if input.Priority == "" {
		input.Priority = TaskPriorityMedium
	}
	if input.Status == "" {
		input.Status = TaskStatusTodo
	}
	if vErr := validateTaskInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		project, err := s.projects.GetProject(ctx, input.ProjectID)
		if err != nil {
			return mapRepoError(err)
		}
		if project.Status.Terminal() {
			return fmt.Errorf("%w: project %s is %s", ErrProjectClosed, project.ID, project.Status)
		}
		if err := checkTaskPeriod(project, input.Period); err != nil {
			return err
		}

		now := s.now()
		created, err := s.tasks.CreateTask(ctx, Task{
			ID:          s.idGenerator(),
			ProjectID:   project.ID,
			Title:       strings.TrimSpace(input.Title),
			Description: strings.TrimSpace(input.Description),
			Period:      input.Period,
			Priority:    input.Priority,
			Status:      input.Status,
			CreatedBy:   params.Principal.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return mapRepoError(err)
		}
		task = created
		return nil
	})
	if err != nil {
		task = Task{}
	}
	return
}

// Update applies the present fields of the patch. The period must stay inside
// the project, and an assigned task whose dates were provided is checked for
// conflicts against its current assignee.
func (s *TaskService) Update(ctx context.Context, params UpdateTaskParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"task_id", params.TaskID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update task", "task updated")
	}()

	var existing Task
	existing, err = s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !params.Principal.Can(CapabilityManageTasks) {
		err = ErrForbidden
		return
	}

	assigneeID := existing.AssigneeID
	for attempt := 1; ; attempt++ {
		task, err = s.updateLocked(ctx, params, assigneeID)
		var moved *assigneeMovedError
		if !errors.As(err, &moved) {
			break
		}
		if attempt >= maxUpdateAttempts {
			err = fmt.Errorf("%w: task %s was reassigned concurrently", ErrConflictDetected, params.TaskID)
			break
		}
		assigneeID = moved.assigneeID
	}
	if err != nil {
		task = Task{}
	}
	return
}

const maxUpdateAttempts = 3

// assigneeMovedError reports that the task changed hands between the
// unlocked read and the locked one.
type assigneeMovedError struct {
	assigneeID string
}

func (e *assigneeMovedError) Error() string {
	return fmt.Sprintf("task assignee changed to %q", e.assigneeID)
}

// updateLocked runs one update attempt holding the lock of assigneeID. It
// fails with *assigneeMovedError when the stored assignee is someone else.
func (s *TaskService) updateLocked(ctx context.Context, params UpdateTaskParams, assigneeID string) (task Task, err error) {
	unlock := s.locks.Lock(assigneeID)
	defer unlock()

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.tasks.GetTask(ctx, params.TaskID)
		if err != nil {
			return mapRepoError(err)
		}
		if current.AssigneeID != assigneeID {
			return &assigneeMovedError{assigneeID: current.AssigneeID}
		}

		patched := applyTaskPatch(current, params.Patch)
		if vErr := validateTaskFields(patched.Title, patched.Priority, patched.Status); vErr.HasErrors() {
			return vErr
		}

		project, err := s.projects.GetProject(ctx, patched.ProjectID)
		if err != nil {
			return mapRepoError(err)
		}
		if err := checkTaskPeriod(project, patched.Period); err != nil {
			return err
		}

		if patched.Assigned() && params.Patch.DatesProvided() {
			// Row lock on Postgres; serializes with other bookings of the user.
			if s.users != nil {
				if _, err := s.users.GetUser(ctx, patched.AssigneeID); err != nil {
					return mapRepoError(err)
				}
			}
			if err := s.ensureNoConflicts(ctx, patched.ID, patched.AssigneeID, patched.Period); err != nil {
				return err
			}
		}

		patched.UpdatedAt = s.now()
		updated, err := s.tasks.UpdateTask(ctx, patched)
		if err != nil {
			return mapRepoError(err)
		}
		task = updated
		return nil
	})
	return
}

func applyTaskPatch(current Task, patch TaskPatch) Task {
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
	if priority, ok := patch.Priority.Get(); ok {
		current.Priority = priority
	}
	return current
}

// ChangeStatus overwrites the status. Any status may follow any other.
func (s *TaskService) ChangeStatus(ctx context.Context, params ChangeTaskStatusParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ChangeStatus",
		"principal_id", params.Principal.UserID,
		"task_id", params.TaskID,
		"status", params.Status,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to change task status", "task status changed")
	}()

	if !params.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of todo, in_progress, done")
		err = vErr
		return
	}

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.tasks.GetTask(ctx, params.TaskID)
		if err != nil {
			return mapRepoError(err)
		}
		current.Status = params.Status
		current.UpdatedAt = s.now()
		updated, err := s.tasks.UpdateTask(ctx, current)
		if err != nil {
			return mapRepoError(err)
		}
		task = updated
		return nil
	})
	if err != nil {
		task = Task{}
	}
	return
}

// Assign gives the task to a user after checking the user's availability and
// existing bookings. Only managers and administrators may assign.
func (s *TaskService) Assign(ctx context.Context, params AssignTaskParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Assign",
		"principal_id", params.Principal.UserID,
		"task_id", params.TaskID,
		"assignee_id", params.UserID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to assign task", "task assigned")
	}()

	if !params.Principal.Can(CapabilityManageTasks) {
		err = ErrForbidden
		return
	}

	var existing Task
	existing, err = s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	task, err = s.assignTo(ctx, existing, params, func(Task) bool { return true })
	return
}

// Reassign moves the task to another user. Managers, administrators and the
// task's current assignee may reassign it.
func (s *TaskService) Reassign(ctx context.Context, params AssignTaskParams) (task Task, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Reassign",
		"principal_id", params.Principal.UserID,
		"task_id", params.TaskID,
		"assignee_id", params.UserID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to reassign task", "task reassigned")
	}()

	var existing Task
	existing, err = s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	allowed := func(current Task) bool {
		if params.Principal.Can(CapabilityManageTasks) {
			return true
		}
		return current.Assigned() && current.AssigneeID == params.Principal.UserID
	}
	if !allowed(existing) {
		err = ErrForbidden
		return
	}

	task, err = s.assignTo(ctx, existing, params, allowed)
	return
}

// assignTo runs the availability and conflict checks for params.UserID and
// stores the new assignee. allowed is re-evaluated against the task as read
// inside the transaction.
func (s *TaskService) assignTo(ctx context.Context, existing Task, params AssignTaskParams, allowed func(Task) bool) (Task, error) {
	if strings.TrimSpace(params.UserID) == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		return Task{}, vErr
	}
	if s.users == nil || s.availability == nil {
		return Task{}, fmt.Errorf("assignment dependencies not configured")
	}

	unlock := s.locks.Lock(params.UserID, existing.AssigneeID)
	defer unlock()

	var task Task
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.tasks.GetTask(ctx, params.TaskID)
		if err != nil {
			return mapRepoError(err)
		}
		if !allowed(current) {
			return ErrForbidden
		}

		if _, err := s.users.GetUser(ctx, params.UserID); err != nil {
			return mapRepoError(err)
		}

		available, err := s.availability.IsAvailable(ctx, params.UserID, current.Period)
		if err != nil {
			return err
		}
		if !available {
			return fmt.Errorf("%w: %s over %s", ErrUserUnavailable, params.UserID, current.Period)
		}

		if err := s.ensureNoConflicts(ctx, current.ID, params.UserID, current.Period); err != nil {
			return err
		}

		current.AssigneeID = params.UserID
		current.UpdatedAt = s.now()
		updated, err := s.tasks.UpdateTask(ctx, current)
		if err != nil {
			return mapRepoError(err)
		}
		task = updated
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// ensureNoConflicts fails with a ConflictError naming every active task of
// assigneeID that overlaps period, taskID excluded.
func (s *TaskService) ensureNoConflicts(ctx context.Context, taskID, assigneeID string, period interval.Interval) error {
	candidates, err := s.tasks.ListConflictingTasks(ctx, ConflictQuery{
		AssigneeID:    assigneeID,
		Period:        period,
		ExcludeTaskID: taskID,
	})
	if err != nil {
		return mapRepoError(err)
	}

	bookings := make([]scheduler.Booking, 0, len(candidates))
	for _, c := range candidates {
		bookings = append(bookings, scheduler.Booking{
			TaskID:     c.ID,
			Title:      c.Title,
			AssigneeID: c.AssigneeID,
			Done:       c.Status == TaskStatusDone,
			Period:     c.Period,
		})
	}

	conflicts := scheduler.DetectConflicts(bookings, scheduler.Candidate{
		TaskID:     taskID,
		AssigneeID: assigneeID,
		Period:     period,
	})
	if len(conflicts) == 0 {
		return nil
	}

	titles := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		titles = append(titles, c.Title)
	}
	return &ConflictError{Titles: titles}
}

// Delete removes a task. Only administrators may delete.
func (s *TaskService) Delete(ctx context.Context, principal Principal, taskID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"task_id", taskID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete task", "task deleted")
	}()

	if !principal.Can(CapabilityDeleteTasks) {
		return ErrForbidden
	}
	if err = s.tasks.DeleteTask(ctx, taskID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, taskID string) (Task, error) {
	if err := s.configured(); err != nil {
		return Task{}, err
	}
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, mapRepoError(err)
	}
	return task, nil
}

// List returns a page of tasks matching the filters.
func (s *TaskService) List(ctx context.Context, params ListTasksParams) (Page[Task], error) {
	if err := s.configured(); err != nil {
		return Page[Task]{}, err
	}
	if params.Period != nil && !params.Period.IsValid() {
		return Page[Task]{}, ErrInvalidInterval
	}
	items, err := s.tasks.ListTasks(ctx, TaskFilter{
		ProjectID:  params.ProjectID,
		Status:     params.Status,
		AssigneeID: params.AssigneeID,
		Period:     params.Period,
	})
	if err != nil {
		return Page[Task]{}, mapRepoError(err)
	}
	return Paginate(items, params.Page, params.PageSize), nil
}

// CountByStatus counts tasks in a status.
func (s *TaskService) CountByStatus(ctx context.Context, status TaskStatus) (int, error) {
	if err := s.configured(); err != nil {
		return 0, err
	}
	count, err := s.tasks.CountTasksByStatus(ctx, status)
	if err != nil {
		return 0, mapRepoError(err)
	}
	return count, nil
}

func checkTaskPeriod(project Project, period interval.Interval) error {
	if !period.IsValid() {
		return ErrInvalidInterval
	}
	if !project.Period.Contains(period) {
		return &RangeError{Project: project.Period, Task: period}
	}
	return nil
}

func validateTaskInput(input TaskInput) *ValidationError {
	vErr := validateTaskFields(input.Title, input.Priority, input.Status)
	if strings.TrimSpace(input.ProjectID) == "" {
		vErr.add("project_id", "project id is required")
	}
	return vErr
}

func validateTaskFields(title string, priority TaskPriority, status TaskStatus) *ValidationError {
	vErr := &ValidationError{}
	title = strings.TrimSpace(title)
	if title == "" {
		vErr.add("title", "title is required")
	} else if len([]rune(title)) > 200 {
		vErr.add("title", "title must be 200 characters or fewer")
	}
	if !priority.Valid() {
		vErr.add("priority", "priority must be one of low, medium, high, urgent")
	}
	if !status.Valid() {
		vErr.add("status", "status must be one of todo, in_progress, done")
	}
	return vErr
}
