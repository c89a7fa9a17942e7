package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/planning-service/internal/persistence"
)

// TaskRepository implements persistence.TaskRepository using SQLite.
type TaskRepository struct {
	store *Store
}

// NewTaskRepository creates a task repository bound to store.
func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{store: store}
}

const taskColumns = `id, project_id, title, description, start_date, end_date, priority, status, assignee_id, created_by, created_at, updated_at`

// CreateTask inserts a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, task persistence.Task) error {
	if task.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Description,
		formatDate(task.StartDate),
		formatDate(task.EndDate),
		task.Priority,
		task.Status,
		nullableString(task.AssigneeID),
		task.CreatedBy,
		formatTimestamp(task.CreatedAt),
		formatTimestamp(task.UpdatedAt),
	)
	return mapError(err)
}

// UpdateTask overwrites every mutable column of a task. Project and creator are fixed.
func (r *TaskRepository) UpdateTask(ctx context.Context, task persistence.Task) error {
	return execAffectingOne(ctx, r.store.conn(ctx),
		`UPDATE tasks
		SET title = ?, description = ?, start_date = ?, end_date = ?, priority = ?, status = ?, assignee_id = ?, updated_at = ?
		WHERE id = ?`,
		task.Title,
		task.Description,
		formatDate(task.StartDate),
		formatDate(task.EndDate),
		task.Priority,
		task.Status,
		nullableString(task.AssigneeID),
		formatTimestamp(task.UpdatedAt),
		task.ID,
	)
}

// GetTask fetches a task by id.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (persistence.Task, error) {
	if id == "" {
		return persistence.Task{}, persistence.ErrNotFound
	}
	row := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListTasks returns tasks matching filter ordered by start date.
func (r *TaskRepository) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.From != nil {
		conditions = append(conditions, "start_date >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "end_date <= ?")
		args = append(args, formatDate(*filter.To))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date ASC, id ASC"
	return r.query(ctx, query, args...)
}

// ListConflictingTasks returns the tasks blocking an assignment.
func (r *TaskRepository) ListConflictingTasks(ctx context.Context, q persistence.ConflictQuery) ([]persistence.Task, error) {
	return r.query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE assignee_id = ?
		AND status != ?
		AND id != ?
		AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC`,
		q.AssigneeID,
		q.DoneStatus,
		q.ExcludeTaskID,
		formatDate(q.End),
		formatDate(q.Start),
	)
}

// CountTasksByStatus counts tasks in status.
func (r *TaskRepository) CountTasksByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteTask removes a task.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.store.conn(ctx), `DELETE FROM tasks WHERE id = ?`, id)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]persistence.Task, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tasks []persistence.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (persistence.Task, error) {
	var (
		task                 persistence.Task
		startDate, endDate   string
		createdAt, updatedAt string
		assignee             sql.NullString
	)
	if err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&startDate,
		&endDate,
		&task.Priority,
		&task.Status,
		&assignee,
		&task.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Task{}, mapError(err)
	}

	task.AssigneeID = stringPtr(assignee)

	var err error
	if task.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if task.EndDate, err = parseDate(endDate); err != nil {
		return persistence.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if task.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if task.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	return task, nil
}
