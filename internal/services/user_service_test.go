package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-service/internal/apperr"
	"rental-service/internal/models"
)

func register(t *testing.T, h *harness, email string, role models.UserRole) *models.User {
	t.Helper()
	u, err := h.users.Register(h.ctx, models.RegisterRequest{
		Email: email, Password: "correct-horse", FullName: " Jo Doe ",
		Phone: "+84901234567", NationalID: "079123456789", Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestUserService_Register(t *testing.T) {
	h := newHarness(t)

	u := register(t, h, "Jo@Example.com", "")
	assert.Equal(t, models.RoleTenant, u.Role)
	assert.Equal(t, "jo@example.com", u.Email)
	assert.Equal(t, "Jo Doe", u.FullName)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	stored, err := h.userRepo.GetByID(h.ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PhoneEncrypted)
	assert.NotContains(t, stored.PhoneEncrypted, "901234567")

	got, err := h.users.GetByID(h.ctx, u.Actor(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "+84901234567", got.Phone)
	assert.Equal(t, "079123456789", got.NationalID)

	_, err = h.users.Register(h.ctx, models.RegisterRequest{Email: "jo@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = h.users.Register(h.ctx, models.RegisterRequest{Email: "boss@example.com", Password: "another-pass", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = h.users.Register(h.ctx, models.RegisterRequest{Email: "not-an-email", Password: "another-pass"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = h.users.Register(h.ctx, models.RegisterRequest{Email: "short@example.com", Password: "short"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = h.users.GetByID(h.ctx, h.user(models.RoleTenant), u.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUserService_LoginAuthenticateLogout(t *testing.T) {
	h := newHarness(t)
	u := register(t, h, "owner@example.com", models.RoleOwner)

	_, err := h.users.Login(h.ctx, models.LoginRequest{Email: "owner@example.com", Password: "wrong-pass"}, "test", "127.0.0.1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = h.users.Login(h.ctx, models.LoginRequest{Email: "nobody@example.com", Password: "wrong-pass"}, "test", "127.0.0.1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	resp, err := h.users.Login(h.ctx, models.LoginRequest{Email: " OWNER@example.com", Password: "correct-horse"}, "test", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := h.users.Authenticate(h.ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleOwner, claims.Role)
	assert.Equal(t, resp.Session.ID, claims.SessionID)

	require.NoError(t, h.users.Logout(h.ctx, claims.SessionID))
	_, err = h.users.Authenticate(h.ctx, resp.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = h.users.Authenticate(h.ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUserService_LockoutAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	register(t, h, "locked@example.com", "")

	for range 3 {
		_, err := h.users.Login(h.ctx, models.LoginRequest{Email: "locked@example.com", Password: "wrong-pass"}, "", "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	}
	_, err := h.users.Login(h.ctx, models.LoginRequest{Email: "locked@example.com", Password: "correct-horse"}, "", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUserService_DeactivateRevokesSessions(t *testing.T) {
	h := newHarness(t)
	u := register(t, h, "leaving@example.com", "")
	resp, err := h.users.Login(h.ctx, models.LoginRequest{Email: "leaving@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, h.users.Deactivate(h.ctx, h.user(models.RoleTenant), u.ID), apperr.ErrForbidden)
	require.NoError(t, h.users.Deactivate(h.ctx, u.Actor(), u.ID))

	_, err = h.users.Authenticate(h.ctx, resp.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = h.users.Login(h.ctx, models.LoginRequest{Email: "leaving@example.com", Password: "correct-horse"}, "", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := h.userRepo.GetByID(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserDeactivated, stored.Status)
}

func TestUserService_UpdateAndList(t *testing.T) {
	h := newHarness(t)
	u := register(t, h, "edit@example.com", "")
	admin := models.Actor{UserID: "admin", Role: models.RoleAdmin}

	role := models.RoleOwner
	_, err := h.users.Update(h.ctx, u.Actor(), u.ID, models.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	name := "Jo Updated"
	got, err := h.users.Update(h.ctx, u.Actor(), u.ID, models.UpdateUserRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jo Updated", got.FullName)
	assert.Equal(t, "+84901234567", got.Phone, "PII survives re-sealing")

	got, err = h.users.Update(h.ctx, admin, u.ID, models.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, got.Role)

	_, _, err = h.users.List(h.ctx, u.Actor(), "", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	owners, total, err := h.users.List(h.ctx, admin, models.RoleOwner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, owners, 1)
	assert.Equal(t, u.ID, owners[0].ID)
}

func TestUserService_EnsureAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.users.EnsureAdmin(h.ctx, "admin@example.com", "admin-password"))
	require.NoError(t, h.users.EnsureAdmin(h.ctx, "admin@example.com", "admin-password"))
	require.NoError(t, h.users.EnsureAdmin(h.ctx, "", ""))

	resp, err := h.users.Login(h.ctx, models.LoginRequest{Email: "admin@example.com", Password: "admin-password"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}
