package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/planning-service/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository bound to store.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, department, role, created_at, updated_at`

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		strings.TrimSpace(user.Username),
		normalizeEmail(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Department,
		user.Role,
		formatTimestamp(user.CreatedAt),
		formatTimestamp(user.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateUser overwrites the mutable profile fields of a user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	return execAffectingOne(ctx, r.store.conn(ctx),
		`UPDATE users
		SET email = ?, password_hash = ?, first_name = ?, last_name = ?, department = ?, role = ?, updated_at = ?
		WHERE id = ?`,
		normalizeEmail(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Department,
		user.Role,
		formatTimestamp(user.UpdatedAt),
		user.ID,
	)
}

// GetUser fetches a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "id = ?", id)
}

// GetUserByUsername fetches a user by username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	return r.getBy(ctx, "username = ?", strings.TrimSpace(username))
}

// GetUserByEmail fetches a user by email, ignoring case.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.getBy(ctx, "email = ?", normalizeEmail(email))
}

// ListUsers returns every user ordered by username.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

func (r *UserRepository) getBy(ctx context.Context, condition string, arg any) (persistence.User, error) {
	row := r.store.conn(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+condition, arg)
	return scanUser(row)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Department,
		&user.Role,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, mapError(err)
	}

	var err error
	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.User{}, fmt.Errorf("user %s: %w", user.ID, err)
	}
	if user.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("user %s: %w", user.ID, err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
