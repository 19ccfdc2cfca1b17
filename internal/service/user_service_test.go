package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freelancehub/internal/model"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	return verr.Fields
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Phone:    "87011234567",
		Role:     "admin",
		Password: "a",
		Confirm:  "b",
	})
	fields := fieldsOf(t, err)
	assert.Equal(t, "this field is required", fields["first_name"])
	assert.Equal(t, "this field is required", fields["last_name"])
	assert.Equal(t, "enter a valid email address", fields["email"])
	assert.Equal(t, "phone must have the format +7XXXXXXXXXX", fields["phone"])
	assert.Contains(t, fields, "role")
	assert.Equal(t, "passwords do not match", fields["confirm"])
}

func TestRegisterNormalizesAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := RegisterInput{
		FirstName: " Aida ",
		LastName:  "Sarsen",
		Email:     " Aida@Example.COM ",
		Phone:     "+77011234567",
		Role:      model.RoleExecutor,
		Password:  "secret-pass",
		Confirm:   "secret-pass",
	}
	user, err := env.users.Register(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "aida@example.com", user.Email)
	assert.Equal(t, "aida@example.com", user.Username)
	assert.Equal(t, "Aida", user.FirstName)
	assert.NotEqual(t, "secret-pass", user.PasswordHash)
	assert.Equal(t, model.AvailabilityOpen, user.Profile.Status)

	_, err = env.users.Register(ctx, input)
	assert.Equal(t, msgEmailTaken, fieldsOf(t, err)["email"])

	input.Email = "other@example.com"
	_, err = env.users.Register(ctx, input)
	assert.Equal(t, msgPhoneTaken, fieldsOf(t, err)["phone"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.register(t, "login@example.com", model.RoleCustomer)

	pair, err := env.users.Login(ctx, LoginInput{Email: "LOGIN@example.com", Password: "secret-pass", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	parsed, err := env.tokens.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, principal.UserID, parsed.UserID)
	assert.Equal(t, model.RoleCustomer, parsed.Role)

	pair, err = env.users.Login(ctx, LoginInput{Username: "login@example.com", Password: "secret-pass", ClientIP: "10.0.0.2"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Refresh)

	_, err = env.users.Login(ctx, LoginInput{Email: "login@example.com", Password: "wrong", ClientIP: "10.0.0.3"})
	assert.Equal(t, "wrong password", fieldsOf(t, err)["password"])

	_, err = env.users.Login(ctx, LoginInput{Email: "missing@example.com", Password: "x", ClientIP: "10.0.0.4"})
	assert.Equal(t, "user not found", fieldsOf(t, err)["email"])

	_, err = env.users.Login(ctx, LoginInput{ClientIP: "10.0.0.5"})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "username")

	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", principal.UserID).Update("is_active", false).Error)
	_, err = env.users.Login(ctx, LoginInput{Email: "login@example.com", Password: "secret-pass", ClientIP: "10.0.0.6"})
	assert.Contains(t, fieldsOf(t, err), "detail")
}

func TestLoginThrottled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "slow@example.com", model.RoleExecutor)

	attempt := LoginInput{Email: "slow@example.com", Password: "wrong", ClientIP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		_, err := env.users.Login(ctx, attempt)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	_, err := env.users.Login(ctx, attempt)
	assert.ErrorIs(t, err, ErrTooManyRequests)

	attempt.ClientIP = "10.0.0.2"
	attempt.Password = "secret-pass"
	_, err = env.users.Login(ctx, attempt)
	assert.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.register(t, "refresh@example.com", model.RoleExecutor)

	pair, err := env.users.Login(ctx, LoginInput{Email: "refresh@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	access, err := env.users.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	parsed, err := env.tokens.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, principal.UserID, parsed.UserID)

	_, err = env.users.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.users.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNormalizeProfile(t *testing.T) {
	rate := int64(5000)
	zero := int64(0)

	cases := []struct {
		name    string
		profile model.PublicProfile
		field   string
	}{
		{"hourly requires rate", model.PublicProfile{RateType: model.RateHour}, "hourly_rate"},
		{"hourly rejects zero", model.PublicProfile{HourlyRate: &zero}, "hourly_rate"},
		{"project requires rate", model.PublicProfile{RateType: model.RateProject, HourlyRate: &rate}, "project_rate"},
		{"unknown rate type", model.PublicProfile{RateType: "daily"}, "rate_type"},
		{"unknown status", model.PublicProfile{Status: "away", HourlyRate: &rate}, "status"},
		{"bad busy date", model.PublicProfile{HourlyRate: &rate, BusyDates: []string{"2024-01-02", "tomorrow"}}, "busy_dates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeProfile(tc.profile)
			assert.Contains(t, fieldsOf(t, err), tc.field)
		})
	}

	t.Run("fills defaults and clears other rate", func(t *testing.T) {
		p, err := NormalizeProfile(model.PublicProfile{RateType: model.RateProject, ProjectRate: &rate, HourlyRate: &rate})
		require.NoError(t, err)
		assert.Nil(t, p.HourlyRate)
		assert.Equal(t, &rate, p.ProjectRate)
		assert.Equal(t, model.AvailabilityOpen, p.Status)
		assert.NotNil(t, p.Skills)
		assert.NotNil(t, p.Socials)
		assert.NotNil(t, p.BusyDates)
	})
}

func TestUpdatePublicProfilePersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.register(t, "profile@example.com", model.RoleExecutor)
	rate := int64(7000)

	user, err := env.users.UpdatePublicProfile(ctx, principal, model.PublicProfile{
		Title:      "Go developer",
		HourlyRate: &rate,
		Skills:     []string{"go", "sql"},
		Socials:    map[string]string{"github": "https://github.com/example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go developer", user.Profile.Title)

	card, err := env.users.PublicCard(ctx, principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, card.Profile.Skills)
	assert.Equal(t, &rate, card.Profile.HourlyRate)
	assert.Equal(t, "https://github.com/example", card.Profile.Socials["github"])
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.register(t, "avatar@example.com", model.RoleExecutor)

	_, err := env.users.UploadAvatar(ctx, principal, "notes.txt", bytes.NewReader([]byte("plain text")))
	assert.Equal(t, "upload a valid image", fieldsOf(t, err)["avatar"])

	_, err = env.users.UploadAvatar(ctx, principal, "empty.png", bytes.NewReader(nil))
	assert.Contains(t, fieldsOf(t, err), "avatar")

	first, err := env.users.UploadAvatar(ctx, principal, "me.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	firstPath := first.AvatarPath
	assert.Equal(t, "avatars/"+principal.UserID.String()+"/me.png", firstPath)

	second, err := env.users.UploadAvatar(ctx, principal, "me.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, firstPath, second.AvatarPath)

	exists, err := afero.Exists(env.fs, firstPath)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(env.fs, second.AvatarPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPublicCardHidesInactiveUsers(t *testing.T) {
	env := newTestEnv(t)
	principal := env.register(t, "hidden@example.com", model.RoleCustomer)
	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", principal.UserID).Update("is_active", false).Error)

	_, err := env.users.PublicCard(context.Background(), principal.UserID)
	assert.ErrorIs(t, err, ErrNotFound)
}
