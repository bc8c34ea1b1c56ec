package services

import (
	"context"
	"testing"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewUserService(db)

	user, err := svc.CreateUser(ctx, " Ada ", "Ada@Example.org", "secret-pass", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.org", user.Email)
	assert.Equal(t, models.RoleVolunteer, user.Role)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "Other", "ADA@example.org", "secret-pass", models.RoleNGO)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "Other", "other@example.org", "secret-pass", "wizard")
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("authenticate", func(t *testing.T) {
		got, err := svc.AuthenticateUser(ctx, "ada@example.org", "secret-pass")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Empty(t, got.PasswordHash)

		_, err = svc.AuthenticateUser(ctx, "ada@example.org", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.AuthenticateUser(ctx, "nobody@example.org", "secret-pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("update password", func(t *testing.T) {
		assert.ErrorIs(t, svc.UpdatePassword(ctx, user.ID, "wrong", "new-pass-123"), ErrInvalidCredentials)
		require.NoError(t, svc.UpdatePassword(ctx, user.ID, "secret-pass", "new-pass-123"))
		_, err := svc.AuthenticateUser(ctx, "ada@example.org", "new-pass-123")
		assert.NoError(t, err)
	})

	t.Run("set role", func(t *testing.T) {
		got, err := svc.SetRole(ctx, user.ID, models.RoleCorporate)
		require.NoError(t, err)
		assert.Equal(t, models.RoleCorporate, got.Role)

		_, err = svc.SetRole(ctx, "missing", models.RoleAdmin)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, user.ID))
		_, err := svc.GetUserByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrNotFound)
	})
}
