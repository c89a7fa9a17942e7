package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/planning-service/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository on GORM.
type AvailabilityRepository struct {
	store *Store
}

// NewAvailabilityRepository creates an availability repository bound to store.
func NewAvailabilityRepository(store *Store) *AvailabilityRepository {
	return &AvailabilityRepository{store: store}
}

// CreateAvailability inserts a new availability window.
func (r *AvailabilityRepository) CreateAvailability(ctx context.Context, a persistence.Availability) error {
	if a.ID == "" {
		return persistence.ErrConstraintViolation
	}
	record := newAvailabilityRecord(a)
	return mapError(r.store.conn(ctx).Omit(clause.Associations).Create(&record).Error)
}

// UpdateAvailability overwrites the dates, flag and note of a window.
func (r *AvailabilityRepository) UpdateAvailability(ctx context.Context, a persistence.Availability) error {
	result := r.store.conn(ctx).Model(&availabilityRecord{}).Where("id = ?", a.ID).Updates(map[string]any{
		"start_date": toDate(a.StartDate),
		"end_date":   toDate(a.EndDate),
		"available":  a.Available,
		"note":       a.Note,
		"updated_at": utc(a.UpdatedAt),
	})
	return requireOne(result)
}

// GetAvailability fetches a window by id.
func (r *AvailabilityRepository) GetAvailability(ctx context.Context, id string) (persistence.Availability, error) {
	if id == "" {
		return persistence.Availability{}, persistence.ErrNotFound
	}
	var record availabilityRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return persistence.Availability{}, mapError(err)
	}
	return record.model(), nil
}

// ListAvailabilities returns windows matching filter. A date range selects
// windows overlapping it, both ends inclusive.
func (r *AvailabilityRepository) ListAvailabilities(ctx context.Context, filter persistence.AvailabilityFilter) ([]persistence.Availability, error) {
	query := r.store.conn(ctx).Model(&availabilityRecord{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.To != nil {
		query = query.Where("start_date <= ?", toDate(*filter.To))
	}
	if filter.From != nil {
		query = query.Where("end_date >= ?", toDate(*filter.From))
	}

	var records []availabilityRecord
	if err := query.Order("user_id ASC").Order("start_date ASC").Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	windows := make([]persistence.Availability, 0, len(records))
	for _, rec := range records {
		windows = append(windows, rec.model())
	}
	return windows, nil
}

// DeleteAvailability removes a window.
func (r *AvailabilityRepository) DeleteAvailability(ctx context.Context, id string) error {
	return requireOne(r.store.conn(ctx).Where("id = ?", id).Delete(&availabilityRecord{}))
}
