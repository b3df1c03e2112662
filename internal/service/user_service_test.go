package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfileSelfOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@x.com", domain.RoleTenant)
	b := e.register(t, "b@x.com", domain.RoleTenant)

	_, err := e.users.UpdateProfile(ctx, b, a.ID, UpdateUserInput{Name: strPtr("Intruder")})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	u, err := e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Name: strPtr("Ibrahima Sow"), Phone: strPtr("+224 621 00 00 03")})
	require.NoError(t, err)
	assert.Equal(t, "Ibrahima Sow", u.Name)
	require.NotNil(t, u.Phone)

	u, err = e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Phone: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, u.Phone, "blank phone clears it")
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@x.com", domain.RoleTenant)
	e.register(t, "b@x.com", domain.RoleOwner)

	_, err := e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Email: strPtr("B@X.com")})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	u, err := e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Email: strPtr("new@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", u.Email)
}

func TestUpdateProfilePasswordChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@x.com", domain.RoleTenant)

	_, err := e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Password: strPtr("newpassword1")})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest), "current password required")

	_, err = e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Password: strPtr("newpassword1"), CurrentPassword: strPtr("wrong")})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	_, err = e.users.UpdateProfile(ctx, a, a.ID, UpdateUserInput{Password: strPtr("newpassword1"), CurrentPassword: strPtr("password123")})
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestUpdateProfileRoleImmutable(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "a@x.com", domain.RoleTenant)
	owner := domain.RoleOwner

	_, err := e.users.UpdateProfile(context.Background(), a, a.ID, UpdateUserInput{Role: &owner})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))
}

func TestDeleteOwnerCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	prop := e.createProperty(t, owner)
	c := e.createContract(t, owner, prop.ID, tenant.ID)
	pay, err := e.payments.Create(ctx, tenant, CreatePaymentInput{
		ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodOrangeMoney,
	})
	require.NoError(t, err)

	_, err = e.users.DeleteAccount(ctx, tenant, owner.ID)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	summary, err := e.users.DeleteAccount(ctx, owner, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, &domain.CascadeSummary{Users: 1, Properties: 1, Contracts: 1, Payments: 1}, summary)

	_, err = e.props.Get(ctx, prop.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.contracts.Get(ctx, tenant, c.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.payments.Get(ctx, tenant, pay.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.users.GetProfile(ctx, tenant.ID)
	assert.NoError(t, err, "the tenant survives")
}

func TestDirectories(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	owner := e.register(t, "b@x.com", domain.RoleOwner)

	owners, err := e.users.ListOwners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, owner.ID, owners[0].ID)

	_, err = e.users.ListTenants(ctx, tenant)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	tenants, err := e.users.ListTenants(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, tenant.ID, tenants[0].ID)

	_, err = e.users.ListAll(ctx, tenant)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	all, err := e.users.ListAll(ctx, owner)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, owner.ID, all[0].ID, "newest first")
}
