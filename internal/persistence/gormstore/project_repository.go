package gormstore

import (
	"context"

	"github.com/example/planning-service/internal/persistence"
)

// ProjectRepository implements persistence.ProjectRepository on GORM.
type ProjectRepository struct {
	store *Store
}

// NewProjectRepository creates a project repository bound to store.
func NewProjectRepository(store *Store) *ProjectRepository {
	return &ProjectRepository{store: store}
}

// CreateProject inserts a new project.
func (r *ProjectRepository) CreateProject(ctx context.Context, project persistence.Project) error {
	if project.ID == "" {
		return persistence.ErrConstraintViolation
	}
	record := newProjectRecord(project)
	return mapError(r.store.conn(ctx).Create(&record).Error)
}

// UpdateProject overwrites every mutable column of a project.
func (r *ProjectRepository) UpdateProject(ctx context.Context, project persistence.Project) error {
	result := r.store.conn(ctx).Model(&projectRecord{}).Where("id = ?", project.ID).Updates(map[string]any{
		"name":        project.Name,
		"description": project.Description,
		"client":      project.Client,
		"start_date":  toDate(project.StartDate),
		"end_date":    toDate(project.EndDate),
		"status":      project.Status,
		"updated_at":  utc(project.UpdatedAt),
		"closed_at":   utcPtr(project.ClosedAt),
	})
	return requireOne(result)
}

// GetProject fetches a project by id.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	if id == "" {
		return persistence.Project{}, persistence.ErrNotFound
	}
	var record projectRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return persistence.Project{}, mapError(err)
	}
	return record.model(), nil
}

// ListProjects returns projects matching filter ordered by start date.
func (r *ProjectRepository) ListProjects(ctx context.Context, filter persistence.ProjectFilter) ([]persistence.Project, error) {
	query := r.store.conn(ctx).Model(&projectRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("start_date >= ?", toDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("end_date <= ?", toDate(*filter.To))
	}

	var records []projectRecord
	if err := query.Order("start_date ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	projects := make([]persistence.Project, 0, len(records))
	for _, rec := range records {
		projects = append(projects, rec.model())
	}
	return projects, nil
}

// CountProjectsByStatus counts projects in status.
func (r *ProjectRepository) CountProjectsByStatus(ctx context.Context, status string) (int, error) {
	var count int64
	if err := r.store.conn(ctx).Model(&projectRecord{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}

// DeleteProject removes a project. Its tasks and plannings are left in place.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return requireOne(r.store.conn(ctx).Where("id = ?", id).Delete(&projectRecord{}))
}
