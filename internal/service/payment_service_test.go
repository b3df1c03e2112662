package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

func TestPaymentTenantCopiedFromContract(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)

	for _, p := range []domain.Principal{tenant, owner} {
		pay, err := e.payments.Create(ctx, p, CreatePaymentInput{
			ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodMTNMoney,
		})
		require.NoError(t, err)
		assert.Equal(t, c.TenantID, pay.TenantID, "created by %s", p.Role)
	}
}

func TestCreatePaymentDefaultsAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	stranger := e.register(t, "s@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)

	pay, err := e.payments.Create(ctx, tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodCard})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, pay.Status)
	assert.Equal(t, domain.Today().String(), pay.PaymentDate.String())

	tests := []struct {
		name string
		p    domain.Principal
		in   CreatePaymentInput
		want domain.Kind
	}{
		{"zero amount", tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(0), PaymentMethod: domain.PaymentMethodCash}, domain.KindBadRequest},
		{"missing amount", tenant, CreatePaymentInput{ContractID: c.ID, PaymentMethod: domain.PaymentMethodCash}, domain.KindBadRequest},
		{"unknown method", tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(1), PaymentMethod: "Bitcoin"}, domain.KindBadRequest},
		{"unknown status", tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(1), PaymentMethod: domain.PaymentMethodCash, Status: "Rembourse"}, domain.KindBadRequest},
		{"missing contract", tenant, CreatePaymentInput{ContractID: "nope", Amount: dec(1), PaymentMethod: domain.PaymentMethodCash}, domain.KindNotFound},
		{"not a party", stranger, CreatePaymentInput{ContractID: c.ID, Amount: dec(1), PaymentMethod: domain.PaymentMethodCash}, domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.payments.Create(ctx, tt.p, tt.in)
			assert.Equal(t, tt.want, domain.KindOf(err), "got %v", err)
		})
	}
}

func TestPaymentWritesOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	stranger := e.register(t, "s@x.com", domain.RoleOwner)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)
	pay, err := e.payments.Create(ctx, tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodOrangeMoney})
	require.NoError(t, err)
	paid := domain.PaymentStatusPaid

	_, err = e.payments.Get(ctx, tenant, pay.ID)
	assert.NoError(t, err, "tenant may read")

	_, err = e.payments.Update(ctx, tenant, pay.ID, UpdatePaymentInput{Status: &paid})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
	assert.True(t, domain.IsKind(e.payments.Delete(ctx, tenant, pay.ID), domain.KindForbidden))

	_, err = e.payments.Get(ctx, stranger, pay.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.payments.Update(ctx, stranger, pay.ID, UpdatePaymentInput{Status: &paid})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	got, err := e.payments.Get(ctx, owner, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status, "denied writes changed nothing")

	require.NoError(t, e.payments.Delete(ctx, owner, pay.ID))
	_, err = e.payments.Get(ctx, owner, pay.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestTenantListingNeverLeaksOtherTenants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	a := e.register(t, "a@x.com", domain.RoleTenant)
	z := e.register(t, "z@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)
	ca := e.createContract(t, owner, prop.ID, a.ID)
	cz := e.createContract(t, owner, prop.ID, z.ID)
	for _, c := range []*domain.Contract{ca, cz, cz} {
		_, err := e.payments.Create(ctx, owner, CreatePaymentInput{ContractID: c.ID, Amount: dec(100), PaymentMethod: domain.PaymentMethodCash})
		require.NoError(t, err)
	}

	mine, err := e.payments.ListForPrincipal(ctx, a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	for _, p := range mine {
		assert.Equal(t, a.ID, p.TenantID)
		assert.Equal(t, "Test User", p.OwnerName)
		assert.Empty(t, p.TenantEmail)
	}

	all, err := e.payments.ListForPrincipal(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, p := range all {
		assert.NotEmpty(t, p.TenantEmail)
	}

	_, err = e.payments.ListForContract(ctx, a, cz.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	forZ, err := e.payments.ListForContract(ctx, z, cz.ID)
	require.NoError(t, err)
	assert.Len(t, forZ, 2)
}

func TestListPaymentsOrderedByDateDesc(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)
	for _, d := range []string{"2025-02-01", "2025-04-01", "2025-03-01"} {
		_, err := e.payments.Create(ctx, tenant, CreatePaymentInput{
			ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodWave, PaymentDate: date(t, d),
		})
		require.NoError(t, err)
	}

	list, err := e.payments.ListForPrincipal(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2025-04-01", list[0].PaymentDate.String())
	assert.Equal(t, "2025-02-01", list[2].PaymentDate.String())
}

// Register A (tenant) and B (owner); B lists P1 and leases it to A; A pays;
// B confirms the payment and A cannot; deleting B removes everything.
func TestRentalLifecycleScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@x.com", domain.RoleTenant)
	b := e.register(t, "b@x.com", domain.RoleOwner)

	p1, err := e.props.Create(ctx, b, CreatePropertyInput{
		Title: "P1", Location: "Ratoma", Price: dec(2500), Type: domain.PropertyTypeRent,
	}, nil)
	require.NoError(t, err)

	c1, err := e.contracts.Create(ctx, b, CreateContractInput{
		PropertyID: p1.ID, TenantID: a.ID,
		StartDate: date(t, "2025-01-01"), EndDate: date(t, "2025-12-31"),
		MonthlyRent: dec(2500),
	})
	require.NoError(t, err)

	pay, err := e.payments.Create(ctx, a, CreatePaymentInput{ContractID: c1.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodOrangeMoney})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, pay.Status)

	paid := domain.PaymentStatusPaid
	updated, err := e.payments.Update(ctx, b, pay.ID, UpdatePaymentInput{Status: &paid})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, updated.Status)

	_, err = e.payments.Update(ctx, a, pay.ID, UpdatePaymentInput{Status: &paid})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = e.users.DeleteAccount(ctx, b, b.ID)
	require.NoError(t, err)

	_, err = e.props.Get(ctx, p1.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.contracts.Get(ctx, a, c1.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.payments.Get(ctx, a, pay.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
