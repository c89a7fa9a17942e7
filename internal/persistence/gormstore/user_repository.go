package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/example/planning-service/internal/persistence"
)

// UserRepository implements persistence.UserRepository on GORM.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository bound to store.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	record := newUserRecord(user)
	return mapError(r.store.conn(ctx).Create(&record).Error)
}

// UpdateUser overwrites the profile, role and password hash of a user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	result := r.store.conn(ctx).Model(&userRecord{}).Where("id = ?", user.ID).Updates(map[string]any{
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"department":    user.Department,
		"role":          user.Role,
		"updated_at":    utc(user.UpdatedAt),
	})
	return requireOne(result)
}

// GetUser fetches a user by id. Inside a Postgres transaction the row is
// locked FOR UPDATE, serializing availability and assignment writes per user
// across processes.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	db := r.store.conn(ctx)
	if r.store.inTx(ctx) && db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record userRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		return persistence.User{}, mapError(err)
	}
	return record.model(), nil
}

// GetUserByUsername fetches a user by exact username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetUserByEmail fetches a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.first(ctx, "email = ?", email)
}

// ListUsers returns every user ordered by username.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var records []userRecord
	if err := r.store.conn(ctx).Order("username ASC").Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	users := make([]persistence.User, 0, len(records))
	for _, rec := range records {
		users = append(users, rec.model())
	}
	return users, nil
}

func (r *UserRepository) first(ctx context.Context, condition string, arg string) (persistence.User, error) {
	if arg == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	var record userRecord
	if err := r.store.conn(ctx).Where(condition, arg).First(&record).Error; err != nil {
		return persistence.User{}, mapError(err)
	}
	return record.model(), nil
}
