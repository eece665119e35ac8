package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobridge/ecobridge-server/pkg/db"
	"github.com/ecobridge/ecobridge-server/pkg/db/dbtest"
	"github.com/ecobridge/ecobridge-server/pkg/db/models"
	"github.com/ecobridge/ecobridge-server/pkg/enums"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

func createUser(t *testing.T, repo *Repository, username string, role enums.UserRole) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Username:     username,
		Email:        username + "@example.com",
		Phone:        "9999999999",
		Role:         role,
		PasswordHash: "hash",
		AvatarURL:    "https://example.com/default.png",
	})
	require.NoError(t, err)
	return user
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Username: " asha ",
		Email:    "Asha@Example.com",
		Phone:    "12345",
		Role:     enums.UserRoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "asha", created.Username)
	assert.Equal(t, "asha@example.com", created.Email)

	found, err := repo.FindByUsername(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Zero(t, found.Ecotokens)
	assert.False(t, found.IsBanned)

	_, err = repo.FindByUsername(ctx, "missing")
	assert.True(t, db.IsNotFound(err))
}

func TestRepositoryRejectsDuplicateUsername(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	createUser(t, repo, "ravi", enums.UserRoleUser)

	_, err := repo.Create(context.Background(), CreateUserDTO{Username: "ravi", Role: enums.UserRoleNGO})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryAdjustCounters(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Username: "meera", Role: enums.UserRoleUser})
	require.NoError(t, err)

	require.NoError(t, repo.AdjustCounters(ctx, user.ID, 5, 0))
	require.NoError(t, repo.AdjustCounters(ctx, user.ID, -5, 1))
	require.NoError(t, repo.AdjustCounters(ctx, user.ID, -5, 1))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, -5, reloaded.Ecotokens)
	assert.Equal(t, 2, reloaded.Warnings)

	require.NoError(t, repo.AdjustCounters(ctx, user.ID, 0, 0))
}

func TestRepositoryListAdminsAndNonAdmins(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	createUser(t, repo, "root", enums.UserRoleAdmin)
	createUser(t, repo, "ops", enums.UserRoleAdmin)
	createUser(t, repo, "giver", enums.UserRoleUser)
	createUser(t, repo, "helpers", enums.UserRoleNGO)

	admins, err := repo.ListAdminIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	others, err := repo.ListNonAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, others, 2)
	for _, u := range others {
		assert.NotEqual(t, enums.UserRoleAdmin, u.Role)
	}
}

func TestRepositoryBanImageAndDelete(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Username: "kiran", Role: enums.UserRoleUser})
	require.NoError(t, err)

	ok, err := repo.SetBanned(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	image := types.Image{URL: "https://cdn.example.com/p.png", Filename: "ecobridge/p.png"}
	require.NoError(t, repo.UpdateImage(ctx, user.ID, image))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsBanned)
	assert.Equal(t, image, reloaded.Image)

	deleted, err := repo.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
