package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/planning-service/internal/persistence"
)

// PlanningRepository implements persistence.PlanningRepository using SQLite.
type PlanningRepository struct {
	store *Store
}

// NewPlanningRepository creates a planning repository bound to store.
func NewPlanningRepository(store *Store) *PlanningRepository {
	return &PlanningRepository{store: store}
}

const planningColumns = `id, title, description, user_id, starts_at, ends_at, type, project_id, task_id, created_by, created_at, updated_at`

// CreatePlanning inserts a new planning entry.
func (r *PlanningRepository) CreatePlanning(ctx context.Context, p persistence.Planning) error {
	if p.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO plannings (`+planningColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Title,
		p.Description,
		p.UserID,
		formatInstant(p.StartsAt),
		formatInstant(p.EndsAt),
		p.Type,
		nullableString(p.ProjectID),
		nullableString(p.TaskID),
		p.CreatedBy,
		formatTimestamp(p.CreatedAt),
		formatTimestamp(p.UpdatedAt),
	)
	return mapError(err)
}

// UpdatePlanning overwrites every mutable column of an entry.
func (r *PlanningRepository) UpdatePlanning(ctx context.Context, p persistence.Planning) error {
	return execAffectingOne(ctx, r.store.conn(ctx),
		`UPDATE plannings
		SET title = ?, description = ?, starts_at = ?, ends_at = ?, type = ?, project_id = ?, task_id = ?, updated_at = ?
		WHERE id = ?`,
		p.Title,
		p.Description,
		formatInstant(p.StartsAt),
		formatInstant(p.EndsAt),
		p.Type,
		nullableString(p.ProjectID),
		nullableString(p.TaskID),
		formatTimestamp(p.UpdatedAt),
		p.ID,
	)
}

// GetPlanning fetches an entry by id.
func (r *PlanningRepository) GetPlanning(ctx context.Context, id string) (persistence.Planning, error) {
	if id == "" {
		return persistence.Planning{}, persistence.ErrNotFound
	}
	row := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+planningColumns+` FROM plannings WHERE id = ?`, id)
	return scanPlanning(row)
}

// ListPlannings returns entries matching filter. A time range selects entries
// lying entirely inside it.
func (r *PlanningRepository) ListPlannings(ctx context.Context, filter persistence.PlanningFilter) ([]persistence.Planning, error) {
	var (
		conditions []string
		args       []any
	)
	for _, eq := range []struct {
		column string
		value  string
	}{
		{"user_id", filter.UserID},
		{"project_id", filter.ProjectID},
		{"task_id", filter.TaskID},
		{"type", filter.Type},
	} {
		if eq.value == "" {
			continue
		}
		conditions = append(conditions, eq.column+" = ?")
		args = append(args, eq.value)
	}
	if filter.From != nil {
		conditions = append(conditions, "starts_at >= ?")
		args = append(args, formatInstant(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "ends_at <= ?")
		args = append(args, formatInstant(*filter.To))
	}

	query := `SELECT ` + planningColumns + ` FROM plannings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.NewestFirst {
		query += " ORDER BY starts_at DESC, id ASC"
	} else {
		query += " ORDER BY starts_at ASC, id ASC"
	}

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var plannings []persistence.Planning
	for rows.Next() {
		p, err := scanPlanning(rows)
		if err != nil {
			return nil, err
		}
		plannings = append(plannings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return plannings, nil
}

// DeletePlanning removes an entry.
func (r *PlanningRepository) DeletePlanning(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.store.conn(ctx), `DELETE FROM plannings WHERE id = ?`, id)
}

func scanPlanning(row rowScanner) (persistence.Planning, error) {
	var (
		p                    persistence.Planning
		startsAt, endsAt     string
		createdAt, updatedAt string
		projectID, taskID    sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.UserID,
		&startsAt,
		&endsAt,
		&p.Type,
		&projectID,
		&taskID,
		&p.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Planning{}, mapError(err)
	}

	p.ProjectID = stringPtr(projectID)
	p.TaskID = stringPtr(taskID)

	var err error
	if p.StartsAt, err = parseInstant(startsAt); err != nil {
		return persistence.Planning{}, fmt.Errorf("planning %s: %w", p.ID, err)
	}
	if p.EndsAt, err = parseInstant(endsAt); err != nil {
		return persistence.Planning{}, fmt.Errorf("planning %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Planning{}, fmt.Errorf("planning %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Planning{}, fmt.Errorf("planning %s: %w", p.ID, err)
	}
	return p, nil
}
