package main

import (
	"context"
	"time"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
	"github.com/example/planning-service/internal/persistence"
)

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, creds.User.ID)
}

// UpdateUser keeps the stored password hash when creds carries none.
func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	hash := creds.PasswordHash
	if hash == "" {
		current, err := a.repo.GetUser(ctx, creds.User.ID)
		if err != nil {
			return application.User{}, err
		}
		hash = current.PasswordHash
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(creds.User, hash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, creds.User.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByUsername(ctx context.Context, username string) (application.User, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationUser), nil
}

type projectRepositoryAdapter struct {
	repo persistence.ProjectRepository
}

func newProjectRepositoryAdapter(repo persistence.ProjectRepository) *projectRepositoryAdapter {
	return &projectRepositoryAdapter{repo: repo}
}

func (a *projectRepositoryAdapter) CreateProject(ctx context.Context, project application.Project) (application.Project, error) {
	if err := a.repo.CreateProject(ctx, toPersistenceProject(project)); err != nil {
		return application.Project{}, err
	}
	return a.GetProject(ctx, project.ID)
}

func (a *projectRepositoryAdapter) UpdateProject(ctx context.Context, project application.Project) (application.Project, error) {
	if err := a.repo.UpdateProject(ctx, toPersistenceProject(project)); err != nil {
		return application.Project{}, err
	}
	return a.GetProject(ctx, project.ID)
}

func (a *projectRepositoryAdapter) GetProject(ctx context.Context, id string) (application.Project, error) {
	stored, err := a.repo.GetProject(ctx, id)
	if err != nil {
		return application.Project{}, err
	}
	return toApplicationProject(stored), nil
}

func (a *projectRepositoryAdapter) ListProjects(ctx context.Context, filter application.ProjectFilter) ([]application.Project, error) {
	from, to := periodBounds(filter.Period)
	models, err := a.repo.ListProjects(ctx, persistence.ProjectFilter{
		Status: string(filter.Status),
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationProject), nil
}

func (a *projectRepositoryAdapter) CountProjectsByStatus(ctx context.Context, status application.ProjectStatus) (int, error) {
	return a.repo.CountProjectsByStatus(ctx, string(status))
}

func (a *projectRepositoryAdapter) DeleteProject(ctx context.Context, id string) error {
	return a.repo.DeleteProject(ctx, id)
}

type taskRepositoryAdapter struct {
	repo persistence.TaskRepository
}

func newTaskRepositoryAdapter(repo persistence.TaskRepository) *taskRepositoryAdapter {
	return &taskRepositoryAdapter{repo: repo}
}

func (a *taskRepositoryAdapter) CreateTask(ctx context.Context, task application.Task) (application.Task, error) {
	if err := a.repo.CreateTask(ctx, toPersistenceTask(task)); err != nil {
		return application.Task{}, err
	}
	return a.GetTask(ctx, task.ID)
}

func (a *taskRepositoryAdapter) UpdateTask(ctx context.Context, task application.Task) (application.Task, error) {
	if err := a.repo.UpdateTask(ctx, toPersistenceTask(task)); err != nil {
		return application.Task{}, err
	}
	return a.GetTask(ctx, task.ID)
}

func (a *taskRepositoryAdapter) GetTask(ctx context.Context, id string) (application.Task, error) {
	stored, err := a.repo.GetTask(ctx, id)
	if err != nil {
		return application.Task{}, err
	}
	return toApplicationTask(stored), nil
}

func (a *taskRepositoryAdapter) ListTasks(ctx context.Context, filter application.TaskFilter) ([]application.Task, error) {
	from, to := periodBounds(filter.Period)
	models, err := a.repo.ListTasks(ctx, persistence.TaskFilter{
		ProjectID:  filter.ProjectID,
		Status:     string(filter.Status),
		AssigneeID: filter.AssigneeID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationTask), nil
}

func (a *taskRepositoryAdapter) ListConflictingTasks(ctx context.Context, query application.ConflictQuery) ([]application.Task, error) {
	models, err := a.repo.ListConflictingTasks(ctx, persistence.ConflictQuery{
		AssigneeID:    query.AssigneeID,
		Start:         query.Period.Start,
		End:           query.Period.End,
		ExcludeTaskID: query.ExcludeTaskID,
		DoneStatus:    string(application.TaskStatusDone),
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationTask), nil
}

func (a *taskRepositoryAdapter) CountTasksByStatus(ctx context.Context, status application.TaskStatus) (int, error) {
	return a.repo.CountTasksByStatus(ctx, string(status))
}

func (a *taskRepositoryAdapter) DeleteTask(ctx context.Context, id string) error {
	return a.repo.DeleteTask(ctx, id)
}

type availabilityRepositoryAdapter struct {
	repo persistence.AvailabilityRepository
}

func newAvailabilityRepositoryAdapter(repo persistence.AvailabilityRepository) *availabilityRepositoryAdapter {
	return &availabilityRepositoryAdapter{repo: repo}
}

func (a *availabilityRepositoryAdapter) CreateAvailability(ctx context.Context, availability application.Availability) (application.Availability, error) {
	if err := a.repo.CreateAvailability(ctx, toPersistenceAvailability(availability)); err != nil {
		return application.Availability{}, err
	}
	return a.GetAvailability(ctx, availability.ID)
}

func (a *availabilityRepositoryAdapter) UpdateAvailability(ctx context.Context, availability application.Availability) (application.Availability, error) {
	if err := a.repo.UpdateAvailability(ctx, toPersistenceAvailability(availability)); err != nil {
		return application.Availability{}, err
	}
	return a.GetAvailability(ctx, availability.ID)
}

func (a *availabilityRepositoryAdapter) GetAvailability(ctx context.Context, id string) (application.Availability, error) {
	stored, err := a.repo.GetAvailability(ctx, id)
	if err != nil {
		return application.Availability{}, err
	}
	return toApplicationAvailability(stored), nil
}

func (a *availabilityRepositoryAdapter) ListAvailabilities(ctx context.Context, filter application.AvailabilityFilter) ([]application.Availability, error) {
	from, to := periodBounds(filter.Period)
	models, err := a.repo.ListAvailabilities(ctx, persistence.AvailabilityFilter{UserID: filter.UserID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationAvailability), nil
}

func (a *availabilityRepositoryAdapter) DeleteAvailability(ctx context.Context, id string) error {
	return a.repo.DeleteAvailability(ctx, id)
}

type planningRepositoryAdapter struct {
	repo persistence.PlanningRepository
}

func newPlanningRepositoryAdapter(repo persistence.PlanningRepository) *planningRepositoryAdapter {
	return &planningRepositoryAdapter{repo: repo}
}

func (a *planningRepositoryAdapter) CreatePlanning(ctx context.Context, planning application.Planning) (application.Planning, error) {
	if err := a.repo.CreatePlanning(ctx, toPersistencePlanning(planning)); err != nil {
		return application.Planning{}, err
	}
	return a.GetPlanning(ctx, planning.ID)
}

func (a *planningRepositoryAdapter) UpdatePlanning(ctx context.Context, planning application.Planning) (application.Planning, error) {
	if err := a.repo.UpdatePlanning(ctx, toPersistencePlanning(planning)); err != nil {
		return application.Planning{}, err
	}
	return a.GetPlanning(ctx, planning.ID)
}

func (a *planningRepositoryAdapter) GetPlanning(ctx context.Context, id string) (application.Planning, error) {
	stored, err := a.repo.GetPlanning(ctx, id)
	if err != nil {
		return application.Planning{}, err
	}
	return toApplicationPlanning(stored), nil
}

func (a *planningRepositoryAdapter) ListPlannings(ctx context.Context, filter application.PlanningFilter) ([]application.Planning, error) {
	from, to := periodBounds(filter.Period)
	models, err := a.repo.ListPlannings(ctx, persistence.PlanningFilter{
		UserID:      filter.UserID,
		ProjectID:   filter.ProjectID,
		TaskID:      filter.TaskID,
		Type:        string(filter.Type),
		From:        from,
		To:          to,
		NewestFirst: filter.NewestFirst,
	})
	if err != nil {
		return nil, err
	}
	return convertAll(models, toApplicationPlanning), nil
}

func (a *planningRepositoryAdapter) DeletePlanning(ctx context.Context, id string) error {
	return a.repo.DeletePlanning(ctx, id)
}

func convertAll[P, A any](models []P, convert func(P) A) []A {
	if len(models) == 0 {
		return nil
	}
	out := make([]A, 0, len(models))
	for _, model := range models {
		out = append(out, convert(model))
	}
	return out
}

func periodBounds(period *interval.Interval) (*time.Time, *time.Time) {
	if period == nil {
		return nil, nil
	}
	start, end := period.Start, period.End
	return &start, &end
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Department:   user.Department,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:         model.ID,
		Username:   model.Username,
		Email:      model.Email,
		FirstName:  model.FirstName,
		LastName:   model.LastName,
		Department: model.Department,
		Role:       application.Role(model.Role),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceProject(project application.Project) persistence.Project {
	return persistence.Project{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Client:      project.Client,
		StartDate:   project.Period.Start,
		EndDate:     project.Period.End,
		Status:      string(project.Status),
		CreatedBy:   project.CreatedBy,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
		ClosedAt:    project.ClosedAt,
	}
}

func toApplicationProject(model persistence.Project) application.Project {
	return application.Project{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Client:      model.Client,
		Period:      interval.New(model.StartDate, model.EndDate),
		Status:      application.ProjectStatus(model.Status),
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		ClosedAt:    model.ClosedAt,
	}
}

func toPersistenceTask(task application.Task) persistence.Task {
	return persistence.Task{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		StartDate:   task.Period.Start,
		EndDate:     task.Period.End,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		AssigneeID:  stringPtr(task.AssigneeID),
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func toApplicationTask(model persistence.Task) application.Task {
	return application.Task{
		ID:          model.ID,
		ProjectID:   model.ProjectID,
		Title:       model.Title,
		Description: model.Description,
		Period:      interval.New(model.StartDate, model.EndDate),
		Priority:    application.TaskPriority(model.Priority),
		Status:      application.TaskStatus(model.Status),
		AssigneeID:  derefString(model.AssigneeID),
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceAvailability(availability application.Availability) persistence.Availability {
	return persistence.Availability{
		ID:        availability.ID,
		UserID:    availability.UserID,
		StartDate: availability.Period.Start,
		EndDate:   availability.Period.End,
		Available: availability.Available,
		Note:      availability.Note,
		CreatedAt: availability.CreatedAt,
		UpdatedAt: availability.UpdatedAt,
	}
}

func toApplicationAvailability(model persistence.Availability) application.Availability {
	return application.Availability{
		ID:        model.ID,
		UserID:    model.UserID,
		Period:    interval.New(model.StartDate, model.EndDate),
		Available: model.Available,
		Note:      model.Note,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistencePlanning(planning application.Planning) persistence.Planning {
	return persistence.Planning{
		ID:          planning.ID,
		Title:       planning.Title,
		Description: planning.Description,
		UserID:      planning.UserID,
		StartsAt:    planning.Period.Start,
		EndsAt:      planning.Period.End,
		Type:        string(planning.Type),
		ProjectID:   stringPtr(planning.ProjectID),
		TaskID:      stringPtr(planning.TaskID),
		CreatedBy:   planning.CreatedBy,
		CreatedAt:   planning.CreatedAt,
		UpdatedAt:   planning.UpdatedAt,
	}
}

func toApplicationPlanning(model persistence.Planning) application.Planning {
	return application.Planning{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		UserID:      model.UserID,
		Period:      interval.New(model.StartsAt, model.EndsAt),
		Type:        application.PlanningType(model.Type),
		ProjectID:   derefString(model.ProjectID),
		TaskID:      derefString(model.TaskID),
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
