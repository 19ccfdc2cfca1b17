package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freelancehub/internal/db/testutil"
	"github.com/nurpe/freelancehub/internal/model"
)

func TestUserLookupIsCaseInsensitive(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "anna@example.com", model.RoleCustomer)

	found, err := repo.FindByEmail(ctx, "  ANNA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found, err = repo.FindByUsername(ctx, "Anna@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, IsNotFound(err))

	exists, err := repo.EmailExists(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserUniqueEmailViolation(t *testing.T) {
	db := testutil.OpenDB(t)
	createUser(t, db, "dup@example.com", model.RoleExecutor)

	err := NewUserRepository(db).Create(context.Background(), &model.User{
		Username: "other",
		Email:    "dup@example.com",
		Role:     model.RoleExecutor,
		Profile:  model.DefaultPublicProfile(),
	})
	_, ok := UniqueViolation(err)
	assert.True(t, ok)
}

func TestUserProfileAndAvatarUpdates(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "p@example.com", model.RoleExecutor)

	profile := model.DefaultPublicProfile()
	profile.Title = "Go developer"
	profile.Skills = []string{"go", "sql"}
	rate := int64(50)
	profile.HourlyRate = &rate
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, profile))
	require.NoError(t, repo.UpdateAvatar(ctx, user.ID, "avatars/x/me.png"))

	loaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go developer", loaded.Profile.Title)
	assert.Equal(t, []string{"go", "sql"}, loaded.Profile.Skills)
	require.NotNil(t, loaded.Profile.HourlyRate)
	assert.Equal(t, int64(50), *loaded.Profile.HourlyRate)
	assert.Equal(t, "avatars/x/me.png", loaded.AvatarPath)

	err = repo.UpdateAvatar(ctx, uuid.New(), "x")
	assert.True(t, IsNotFound(err))
}

func TestUserCards(t *testing.T) {
	db := testutil.OpenDB(t)
	a := createUser(t, db, "a@example.com", model.RoleExecutor)
	b := createUser(t, db, "b@example.com", model.RoleCustomer)

	cards, err := NewUserRepository(db).Cards(context.Background(), []uuid.UUID{a.ID, b.ID, a.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, "Test User", cards[a.ID].FullName)
	assert.Equal(t, model.RoleCustomer, cards[b.ID].Role)
}
