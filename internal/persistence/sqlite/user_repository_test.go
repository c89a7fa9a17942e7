package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/planning-service/internal/persistence"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	repo := NewUserRepository(store)
	ctx := context.Background()

	user := persistence.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        " Alice@Example.com ",
		PasswordHash: "hash",
		FirstName:    "Alice",
		LastName:     "Martin",
		Department:   "Ops",
		Role:         "manager",
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	got, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "manager", got.Role)
	assert.True(t, got.CreatedAt.Equal(testNow))

	byName, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byName.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)
}

func TestUserRepository_CreateUser_Duplicate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	repo := NewUserRepository(store)
	seedUser(t, store, "alice")

	err := repo.CreateUser(context.Background(), persistence.User{
		ID: "u-2", Username: "alice", Email: "other@example.com", PasswordHash: "h",
		Role: "employee", CreatedAt: testNow, UpdatedAt: testNow,
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestUserRepository_CreateUser_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(newTestStore(t))
	err := repo.CreateUser(context.Background(), persistence.User{
		ID: "u-1", Username: "bob", Email: "bob@example.com", PasswordHash: "h",
		Role: "root", CreatedAt: testNow, UpdatedAt: testNow,
	})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestUserRepository_UpdateUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	repo := NewUserRepository(store)
	ctx := context.Background()
	user := seedUser(t, store, "alice")

	user.Department = "Finance"
	user.Email = "alice@corp.example"
	require.NoError(t, repo.UpdateUser(ctx, user))

	got, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Finance", got.Department)
	assert.Equal(t, "alice@corp.example", got.Email)

	err = repo.UpdateUser(ctx, persistence.User{ID: "missing", Role: "employee", UpdatedAt: testNow})
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestUserRepository_ListUsers(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedUser(t, store, "carol")
	seedUser(t, store, "alice")

	users, err := NewUserRepository(store).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "carol", users[1].Username)
}
