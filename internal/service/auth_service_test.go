package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	phone := " +224 621 00 00 01 "

	res, err := e.auth.Register(ctx, RegisterInput{
		Email:    "  Alice@Example.com ",
		Password: "password123",
		Name:     "Aïssatou Diallo",
		Phone:    &phone,
		Role:     domain.RoleTenant,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "alice@example.com", res.User.Email)
	require.NotNil(t, res.User.Phone)
	assert.Equal(t, "+224 621 00 00 01", *res.User.Phone)
	assert.NotEqual(t, "password123", res.User.PasswordHash)

	login, err := e.auth.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.Equal(t, int64(3600), login.ExpiresIn)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.register(t, "a@x.com", domain.RoleTenant)

	_, err := e.auth.Register(ctx, RegisterInput{
		Email: "A@x.com", Password: "different99", Name: "Someone Else", Role: domain.RoleOwner,
	})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	// The original account is untouched.
	u, err := e.users.GetProfile(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTenant, u.Role)
	assert.Equal(t, "Test User", u.Name)
	_, err = e.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "password123"})
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	bad := "12"

	_, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "short",
		Name:     "R2D2",
		Phone:    &bad,
		Role:     "admin",
	})
	require.True(t, domain.IsKind(err, domain.KindBadRequest))

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	fields := map[string]bool{}
	for _, f := range de.Fields {
		fields[f.Field] = true
	}
	for _, name := range []string{"email", "password", "name", "phone", "role"} {
		assert.True(t, fields[name], "expected a %s field error", name)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "owner@x.com", domain.RoleOwner)

	_, errUnknown := e.auth.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "password123"})
	_, errWrong := e.auth.Login(ctx, LoginInput{Email: "owner@x.com", Password: "wrong-password"})

	require.True(t, domain.IsKind(errUnknown, domain.KindUnauthorized))
	require.True(t, domain.IsKind(errWrong, domain.KindUnauthorized))
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	p := e.register(t, "me@x.com", domain.RoleOwner)

	u, err := e.auth.Me(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "me@x.com", u.Email)

	_, err = e.auth.Me(context.Background(), domain.Principal{ID: "gone"})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
