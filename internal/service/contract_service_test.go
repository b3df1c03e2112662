package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

func TestCreateContractCopiesOwnerFromProperty(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)

	c := e.createContract(t, owner, prop.ID, tenant.ID)
	assert.Equal(t, owner.ID, c.OwnerID)
	assert.Equal(t, domain.ContractStatusActive, c.Status)

	got, err := e.contracts.Get(context.Background(), tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.PropertyID, got.PropertyID)
	assert.Equal(t, c.StartDate.String(), got.StartDate.String())
	assert.True(t, c.MonthlyRent.Equal(got.MonthlyRent))
}

func TestCreateContractRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	other := e.register(t, "c@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)

	valid := func() CreateContractInput {
		return CreateContractInput{
			PropertyID:  prop.ID,
			TenantID:    tenant.ID,
			StartDate:   date(t, "2025-01-01"),
			EndDate:     date(t, "2025-12-31"),
			MonthlyRent: dec(2500),
		}
	}

	tests := []struct {
		name      string
		principal domain.Principal
		mutate    func(*CreateContractInput)
		want      domain.Kind
	}{
		{"tenant role", tenant, func(*CreateContractInput) {}, domain.KindForbidden},
		{"someone else's property", other, func(*CreateContractInput) {}, domain.KindForbidden},
		{"missing property", owner, func(in *CreateContractInput) { in.PropertyID = "nope" }, domain.KindNotFound},
		{"unknown tenant", owner, func(in *CreateContractInput) { in.TenantID = "nope" }, domain.KindBadRequest},
		{"tenant is an owner", owner, func(in *CreateContractInput) { in.TenantID = other.ID }, domain.KindBadRequest},
		{"end before start", owner, func(in *CreateContractInput) { in.EndDate = date(t, "2024-12-31") }, domain.KindBadRequest},
		{"same day", owner, func(in *CreateContractInput) { in.EndDate = date(t, "2025-01-01") }, domain.KindBadRequest},
		{"negative deposit", owner, func(in *CreateContractInput) { in.Deposit = dec(-1) }, domain.KindBadRequest},
		{"missing rent", owner, func(in *CreateContractInput) { in.MonthlyRent = nil }, domain.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := e.contracts.Create(ctx, tt.principal, in)
			assert.Equal(t, tt.want, domain.KindOf(err), "got %v", err)
		})
	}

	list, err := e.contracts.ListForPrincipal(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list, "no failed create left a row behind")
}

func TestContractAccessMasksExistence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	stranger := e.register(t, "s@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)

	_, err := e.contracts.Get(ctx, stranger, c.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.contracts.Update(ctx, stranger, c.ID, UpdateContractInput{MonthlyRent: dec(1)})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = e.contracts.Delete(ctx, stranger, c.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	got, err := e.contracts.Get(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.True(t, dec(2500).Equal(got.MonthlyRent), "stranger changed nothing")
}

func TestContractStatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)
	status := func(s domain.ContractStatus) *domain.ContractStatus { return &s }

	_, err := e.contracts.Update(ctx, owner, c.ID, UpdateContractInput{Status: status(domain.ContractStatusActive)})
	require.NoError(t, err, "same status is a no-op")

	got, err := e.contracts.Update(ctx, tenant, c.ID, UpdateContractInput{Status: status(domain.ContractStatusTerminated)})
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusTerminated, got.Status)

	_, err = e.contracts.Update(ctx, owner, c.ID, UpdateContractInput{Status: status(domain.ContractStatusActive)})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest), "terminated is final")

	_, err = e.contracts.Update(ctx, owner, c.ID, UpdateContractInput{EndDate: date(t, "2024-06-01")})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest), "end before start")
}

func TestListContractsByRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	a := e.register(t, "a@x.com", domain.RoleTenant)
	b := e.register(t, "z@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)
	e.createContract(t, owner, prop.ID, a.ID)
	e.createContract(t, owner, prop.ID, b.ID)

	mine, err := e.contracts.ListForPrincipal(ctx, a)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].TenantID)

	all, err := e.contracts.ListForPrincipal(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteContractRemovesPayments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)
	_, err := e.payments.Create(ctx, tenant, CreatePaymentInput{ContractID: c.ID, Amount: dec(10), PaymentMethod: domain.PaymentMethodWave})
	require.NoError(t, err)

	summary, err := e.contracts.Delete(ctx, tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Contracts)
	assert.Equal(t, int64(1), summary.Payments)
}

func TestExpireEnded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	c := e.createContract(t, owner, e.createProperty(t, owner).ID, tenant.ID)

	n, err := e.contracts.ExpireEnded(ctx, *date(t, "2025-06-01"))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.contracts.ExpireEnded(ctx, *date(t, "2026-01-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := e.contracts.Get(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusExpired, got.Status)
}
