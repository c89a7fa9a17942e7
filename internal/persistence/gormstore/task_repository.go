package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/planning-service/internal/persistence"
)

// TaskRepository implements persistence.TaskRepository on GORM.
type TaskRepository struct {
	store *Store
}

// NewTaskRepository creates a task repository bound to store.
func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{store: store}
}

// CreateTask inserts a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, task persistence.Task) error {
	if task.ID == "" {
		return persistence.ErrConstraintViolation
	}
	record := newTaskRecord(task)
	return mapError(r.store.conn(ctx).Omit(clause.Associations).Create(&record).Error)
}

// UpdateTask overwrites every mutable column of a task. Project and creator are fixed.
func (r *TaskRepository) UpdateTask(ctx context.Context, task persistence.Task) error {
	result := r.store.conn(ctx).Model(&taskRecord{}).Where("id = ?", task.ID).Updates(map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"start_date":  toDate(task.StartDate),
		"end_date":    toDate(task.EndDate),
		"priority":    task.Priority,
		"status":      task.Status,
		"assignee_id": optionalID(task.AssigneeID),
		"updated_at":  utc(task.UpdatedAt),
	})
	return requireOne(result)
}

// GetTask fetches a task by id.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (persistence.Task, error) {
	if id == "" {
		return persistence.Task{}, persistence.ErrNotFound
	}
	var record taskRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return persistence.Task{}, mapError(err)
	}
	return record.model(), nil
}

// ListTasks returns tasks matching filter ordered by start date.
func (r *TaskRepository) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	query := r.store.conn(ctx).Model(&taskRecord{})
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssigneeID != "" {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	if filter.From != nil {
		query = query.Where("start_date >= ?", toDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("end_date <= ?", toDate(*filter.To))
	}
	return r.find(query)
}

// ListConflictingTasks returns the tasks blocking an assignment.
func (r *TaskRepository) ListConflictingTasks(ctx context.Context, q persistence.ConflictQuery) ([]persistence.Task, error) {
	query := r.store.conn(ctx).Model(&taskRecord{}).
		Where("assignee_id = ?", q.AssigneeID).
		Where("status <> ?", q.DoneStatus).
		Where("id <> ?", q.ExcludeTaskID).
		Where("start_date <= ? AND end_date >= ?", toDate(q.End), toDate(q.Start))
	return r.find(query)
}

// CountTasksByStatus counts tasks in status.
func (r *TaskRepository) CountTasksByStatus(ctx context.Context, status string) (int, error) {
	var count int64
	if err := r.store.conn(ctx).Model(&taskRecord{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}

// DeleteTask removes a task.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	return requireOne(r.store.conn(ctx).Where("id = ?", id).Delete(&taskRecord{}))
}

func (r *TaskRepository) find(query *gorm.DB) ([]persistence.Task, error) {
	var records []taskRecord
	if err := query.Order("start_date ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	tasks := make([]persistence.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, rec.model())
	}
	return tasks, nil
}
