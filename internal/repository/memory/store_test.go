package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

type fixture struct {
	store    *Store
	owner    *domain.User
	tenant   *domain.User
	property *domain.Property
	contract *domain.Contract
	payment  *domain.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := NewStore()

	owner := &domain.User{Email: "owner@example.com", Name: "Owner", Role: domain.RoleOwner}
	tenant := &domain.User{Email: "tenant@example.com", Name: "Tenant", Role: domain.RoleTenant}
	require.NoError(t, s.Users().Create(ctx, owner))
	require.NoError(t, s.Users().Create(ctx, tenant))

	prop := &domain.Property{OwnerID: owner.ID, Title: "F3", Location: "Matam", Price: decimal.NewFromInt(100), Type: domain.PropertyTypeRent}
	require.NoError(t, s.Properties().Create(ctx, prop))

	start, _ := domain.ParseDate("2024-01-01")
	end, _ := domain.ParseDate("2024-12-31")
	c := &domain.Contract{PropertyID: prop.ID, TenantID: tenant.ID, OwnerID: owner.ID, StartDate: start, EndDate: end, MonthlyRent: decimal.NewFromInt(100)}
	require.NoError(t, s.Contracts().Create(ctx, c))

	p := &domain.Payment{ContractID: c.ID, TenantID: tenant.ID, Amount: decimal.NewFromInt(100), PaymentMethod: domain.PaymentMethodCash}
	require.NoError(t, s.Payments().Create(ctx, p))

	return &fixture{store: s, owner: owner, tenant: tenant, property: prop, contract: c, payment: p}
}

func TestDuplicateEmailRejected(t *testing.T) {
	f := newFixture(t)
	err := f.store.Users().Create(context.Background(), &domain.User{Email: "OWNER@example.com", Role: domain.RoleOwner})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.store.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tenants, err := f.store.Users().ListByRole(ctx, domain.RoleTenant)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, f.tenant.ID, tenants[0].ID)
}

func TestDeleteTenantCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.store.Users().DeleteCascade(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Payments)
	assert.Equal(t, int64(1), summary.Contracts)
	assert.Equal(t, int64(0), summary.Properties)

	_, err = f.store.Contracts().GetByID(ctx, f.contract.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.store.Properties().GetByID(ctx, f.property.ID)
	assert.NoError(t, err, "the owner's property survives")
}

func TestDeletePropertyCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.store.Properties().DeleteCascade(ctx, f.property.ID)
	require.NoError(t, err)
	assert.Equal(t, &domain.CascadeSummary{Properties: 1, Contracts: 1, Payments: 1}, summary)
	_, err = f.store.Payments().GetByID(ctx, f.payment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinTxRestoresStateOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := f.store.Users().DeleteCascade(ctx, f.owner.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.store.Users().GetByID(ctx, f.owner.ID)
	assert.NoError(t, err)
	_, err = f.store.Payments().GetByID(ctx, f.payment.ID)
	assert.NoError(t, err)
}

func TestPaymentListingsProjectCounterparty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byTenant, err := f.store.Payments().ListByTenant(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, byTenant, 1)
	assert.Equal(t, "Owner", byTenant[0].OwnerName)
	assert.Empty(t, byTenant[0].TenantEmail)

	byOwner, err := f.store.Payments().ListByOwner(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "tenant@example.com", byOwner[0].TenantEmail)
	assert.Empty(t, byOwner[0].OwnerName)
}

func TestExpireEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asOf, _ := domain.ParseDate("2025-01-01")
	n, err := f.store.Contracts().ExpireEnded(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := f.store.Contracts().GetByID(ctx, f.contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusExpired, c.Status)
}
