package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/planning-service/internal/persistence"
)

// ProjectRepository implements persistence.ProjectRepository using SQLite.
type ProjectRepository struct {
	store *Store
}

// NewProjectRepository creates a project repository bound to store.
func NewProjectRepository(store *Store) *ProjectRepository {
	return &ProjectRepository{store: store}
}

const projectColumns = `id, name, description, client, start_date, end_date, status, created_by, created_at, updated_at, closed_at`

// CreateProject inserts a new project.
func (r *ProjectRepository) CreateProject(ctx context.Context, project persistence.Project) error {
	if project.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Name,
		project.Description,
		project.Client,
		formatDate(project.StartDate),
		formatDate(project.EndDate),
		project.Status,
		project.CreatedBy,
		formatTimestamp(project.CreatedAt),
		formatTimestamp(project.UpdatedAt),
		nullableTimestamp(project.ClosedAt),
	)
	return mapError(err)
}

// UpdateProject overwrites every mutable column of a project.
func (r *ProjectRepository) UpdateProject(ctx context.Context, project persistence.Project) error {
	return execAffectingOne(ctx, r.store.conn(ctx),
		`UPDATE projects
		SET name = ?, description = ?, client = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?, closed_at = ?
		WHERE id = ?`,
		project.Name,
		project.Description,
		project.Client,
		formatDate(project.StartDate),
		formatDate(project.EndDate),
		project.Status,
		formatTimestamp(project.UpdatedAt),
		nullableTimestamp(project.ClosedAt),
		project.ID,
	)
}

// GetProject fetches a project by id.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	if id == "" {
		return persistence.Project{}, persistence.ErrNotFound
	}
	row := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns projects matching filter ordered by start date.
func (r *ProjectRepository) ListProjects(ctx context.Context, filter persistence.ProjectFilter) ([]persistence.Project, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, "start_date >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "end_date <= ?")
		args = append(args, formatDate(*filter.To))
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date ASC, id ASC"

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var projects []persistence.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return projects, nil
}

// CountProjectsByStatus counts projects in status.
func (r *ProjectRepository) CountProjectsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.store.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteProject removes a project. Tasks referencing it are left untouched.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.store.conn(ctx), `DELETE FROM projects WHERE id = ?`, id)
}

func scanProject(row rowScanner) (persistence.Project, error) {
	var (
		project              persistence.Project
		startDate, endDate   string
		createdAt, updatedAt string
		closedAt             sql.NullString
	)
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.Client,
		&startDate,
		&endDate,
		&project.Status,
		&project.CreatedBy,
		&createdAt,
		&updatedAt,
		&closedAt,
	); err != nil {
		return persistence.Project{}, mapError(err)
	}

	var err error
	if project.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
	}
	if project.EndDate, err = parseDate(endDate); err != nil {
		return persistence.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
	}
	if project.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
	}
	if project.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
	}
	if project.ClosedAt, err = timestampPtr(closedAt); err != nil {
		return persistence.Project{}, fmt.Errorf("project %s: %w", project.ID, err)
	}
	return project, nil
}
