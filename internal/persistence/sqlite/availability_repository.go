package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/planning-service/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite.
type AvailabilityRepository struct {
	store *Store
}

// NewAvailabilityRepository creates an availability repository bound to store.
func NewAvailabilityRepository(store *Store) *AvailabilityRepository {
	return &AvailabilityRepository{store: store}
}

const availabilityColumns = `id, user_id, start_date, end_date, available, note, created_at, updated_at`

// CreateAvailability inserts a new availability window.
func (r *AvailabilityRepository) CreateAvailability(ctx context.Context, a persistence.Availability) error {
	if a.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO availabilities (`+availabilityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.UserID,
		formatDate(a.StartDate),
		formatDate(a.EndDate),
		a.Available,
		a.Note,
		formatTimestamp(a.CreatedAt),
		formatTimestamp(a.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAvailability overwrites the dates, flag and note of a window.
func (r *AvailabilityRepository) UpdateAvailability(ctx context.Context, a persistence.Availability) error {
	return execAffectingOne(ctx, r.store.conn(ctx),
		`UPDATE availabilities
		SET start_date = ?, end_date = ?, available = ?, note = ?, updated_at = ?
		WHERE id = ?`,
		formatDate(a.StartDate),
		formatDate(a.EndDate),
		a.Available,
		a.Note,
		formatTimestamp(a.UpdatedAt),
		a.ID,
	)
}

// GetAvailability fetches a window by id.
func (r *AvailabilityRepository) GetAvailability(ctx context.Context, id string) (persistence.Availability, error) {
	if id == "" {
		return persistence.Availability{}, persistence.ErrNotFound
	}
	row := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+availabilityColumns+` FROM availabilities WHERE id = ?`, id)
	return scanAvailability(row)
}

// ListAvailabilities returns windows matching filter. A date range selects
// windows overlapping it, both ends inclusive.
func (r *AvailabilityRepository) ListAvailabilities(ctx context.Context, filter persistence.AvailabilityFilter) ([]persistence.Availability, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.To != nil {
		conditions = append(conditions, "start_date <= ?")
		args = append(args, formatDate(*filter.To))
	}
	if filter.From != nil {
		conditions = append(conditions, "end_date >= ?")
		args = append(args, formatDate(*filter.From))
	}

	query := `SELECT ` + availabilityColumns + ` FROM availabilities`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY user_id ASC, start_date ASC"

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var windows []persistence.Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return windows, nil
}

// DeleteAvailability removes a window.
func (r *AvailabilityRepository) DeleteAvailability(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.store.conn(ctx), `DELETE FROM availabilities WHERE id = ?`, id)
}

func scanAvailability(row rowScanner) (persistence.Availability, error) {
	var (
		a                    persistence.Availability
		startDate, endDate   string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&startDate,
		&endDate,
		&a.Available,
		&a.Note,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Availability{}, mapError(err)
	}

	var err error
	if a.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Availability{}, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	if a.EndDate, err = parseDate(endDate); err != nil {
		return persistence.Availability{}, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Availability{}, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	if a.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Availability{}, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	return a, nil
}
