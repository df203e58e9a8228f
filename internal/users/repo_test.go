package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func seedUser(t *testing.T, repo *Repository, username, email string) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Username:     username,
		Email:        email,
		PasswordHash: "argon2id$hash",
		FullName:     "Seed User",
		Role:         enums.UserRoleStaff,
	})
	require.NoError(t, err)
	return user
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	created := seedUser(t, repo, "warehouse-lead", "lead@example.com")
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	byUsername, err := repo.FindByUsername(ctx, "warehouse-lead")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byEmail, err := repo.FindByEmail(ctx, "LEAD@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateProfile(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()
	user := seedUser(t, repo, "clerk", "clerk@example.com")

	name := "  Renamed Clerk  "
	email := "Renamed@Example.com"
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, UpdateProfileDTO{
		FullName: &name,
		Email:    &email,
	}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Clerk", reloaded.FullName)
	assert.Equal(t, "renamed@example.com", reloaded.Email)

	// empty patch is a no-op, not an error
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, UpdateProfileDTO{}))
}

func TestRepositoryUpdateLastLoginAndPassword(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()
	user := seedUser(t, repo, "night-shift", "night@example.com")
	require.Nil(t, user.LastLoginAt)

	at := time.Date(2026, 8, 30, 22, 15, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "argon2id$rotated"))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.Equal(t, at.Unix(), reloaded.LastLoginAt.UTC().Unix())
	assert.Equal(t, "argon2id$rotated", reloaded.PasswordHash)
}
