package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/planning-service/internal/persistence"
)

// PlanningRepository implements persistence.PlanningRepository on GORM.
type PlanningRepository struct {
	store *Store
}

// NewPlanningRepository creates a planning repository bound to store.
func NewPlanningRepository(store *Store) *PlanningRepository {
	return &PlanningRepository{store: store}
}

// CreatePlanning inserts a new planning entry.
func (r *PlanningRepository) CreatePlanning(ctx context.Context, p persistence.Planning) error {
	if p.ID == "" {
		return persistence.ErrConstraintViolation
	}
	record := newPlanningRecord(p)
	return mapError(r.store.conn(ctx).Omit(clause.Associations).Create(&record).Error)
}

// UpdatePlanning overwrites every mutable column of an entry. Owner and creator are fixed.
func (r *PlanningRepository) UpdatePlanning(ctx context.Context, p persistence.Planning) error {
	result := r.store.conn(ctx).Model(&planningRecord{}).Where("id = ?", p.ID).Updates(map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"starts_at":   utc(p.StartsAt),
		"ends_at":     utc(p.EndsAt),
		"type":        p.Type,
		"project_id":  optionalID(p.ProjectID),
		"task_id":     optionalID(p.TaskID),
		"updated_at":  utc(p.UpdatedAt),
	})
	return requireOne(result)
}

// GetPlanning fetches an entry by id.
func (r *PlanningRepository) GetPlanning(ctx context.Context, id string) (persistence.Planning, error) {
	if id == "" {
		return persistence.Planning{}, persistence.ErrNotFound
	}
	var record planningRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return persistence.Planning{}, mapError(err)
	}
	return record.model(), nil
}

// ListPlannings returns entries matching filter ordered by start time.
func (r *PlanningRepository) ListPlannings(ctx context.Context, filter persistence.PlanningFilter) ([]persistence.Planning, error) {
	query := r.store.conn(ctx).Model(&planningRecord{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.TaskID != "" {
		query = query.Where("task_id = ?", filter.TaskID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("starts_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("ends_at <= ?", filter.To.UTC())
	}

	if filter.NewestFirst {
		query = query.Order("starts_at DESC")
	} else {
		query = query.Order("starts_at ASC")
	}

	var records []planningRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	plannings := make([]persistence.Planning, 0, len(records))
	for _, rec := range records {
		plannings = append(plannings, rec.model())
	}
	return plannings, nil
}

// DeletePlanning removes an entry.
func (r *PlanningRepository) DeletePlanning(ctx context.Context, id string) error {
	return requireOne(r.store.conn(ctx).Where("id = ?", id).Delete(&planningRecord{}))
}
