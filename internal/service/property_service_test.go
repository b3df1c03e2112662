package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

func TestCreatePropertyRequiresOwnerRole(t *testing.T) {
	e := newEnv(t)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)

	_, err := e.props.Create(context.Background(), tenant, CreatePropertyInput{
		Title: "Studio", Location: "Matam", Price: dec(100), Type: domain.PropertyTypeRent,
	}, nil)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestCreatePropertyValidation(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "b@x.com", domain.RoleOwner)

	_, err := e.props.Create(context.Background(), owner, CreatePropertyInput{
		Title: "  ", Location: "Matam", Price: dec(-1), Type: "Lease", Beds: -2,
	}, nil)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindBadRequest, de.Kind)
	fields := map[string]bool{}
	for _, f := range de.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["price"])
	assert.True(t, fields["type"])
	assert.True(t, fields["beds"])

	_, err = e.props.Create(context.Background(), owner, CreatePropertyInput{
		Title: "Studio", Location: "Matam", Type: domain.PropertyTypeRent,
	}, nil)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []domain.FieldError{{Field: "price", Message: "is required"}}, de.Fields)
}

func TestCreatePropertyRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	desc := "Vue sur mer"

	created, err := e.props.Create(ctx, owner, CreatePropertyInput{
		Title:       "Villa",
		Description: &desc,
		Location:    "Kaloum",
		Price:       dec(2500),
		Type:        domain.PropertyTypeRent,
		Beds:        4,
		Baths:       2,
		Sqft:        200,
	}, &ImageUpload{Filename: "villa.png", Content: strings.NewReader("png")})
	require.NoError(t, err)

	got, err := e.props.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.Equal(t, domain.PropertyStatusAvailable, got.Status)
	assert.True(t, decimal.NewFromInt(2500).Equal(got.Price))
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "/uploads/villa.png", *got.ImageURL)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "b@x.com", got.Owner.Email)
}

func TestPropertyWriteByNonOwnerForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	other := e.register(t, "c@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)

	for _, p := range []domain.Principal{other, tenant} {
		_, err := e.props.Update(ctx, p, prop.ID, UpdatePropertyInput{Title: strPtr("Hijacked")}, nil)
		assert.True(t, domain.IsKind(err, domain.KindForbidden))
		_, err = e.props.Delete(ctx, p, prop.ID)
		assert.True(t, domain.IsKind(err, domain.KindForbidden))
	}

	got, err := e.props.Get(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, prop, got, "property unmodified")
}

func TestUpdatePropertyPartial(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	prop := e.createProperty(t, owner)
	rented := domain.PropertyStatusRented

	got, err := e.props.Update(ctx, owner, prop.ID, UpdatePropertyInput{Price: dec(3000), Status: &rented}, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(got.Price))
	assert.Equal(t, domain.PropertyStatusRented, got.Status)
	assert.Equal(t, prop.Title, got.Title)
	assert.Equal(t, prop.Beds, got.Beds)

	_, err = e.props.Update(ctx, owner, prop.ID, UpdatePropertyInput{Title: strPtr(" ")}, nil)
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))

	_, err = e.props.Update(ctx, owner, "missing", UpdatePropertyInput{}, nil)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUpdatePropertyReplacesImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	prop := e.createProperty(t, owner)

	_, err := e.props.Update(ctx, owner, prop.ID, UpdatePropertyInput{}, &ImageUpload{Filename: "a.png", Content: strings.NewReader("a")})
	require.NoError(t, err)
	got, err := e.props.Update(ctx, owner, prop.ID, UpdatePropertyInput{}, &ImageUpload{Filename: "b.png", Content: strings.NewReader("b")})
	require.NoError(t, err)

	assert.Equal(t, "/uploads/b.png", *got.ImageURL)
	assert.Equal(t, []string{"/uploads/a.png"}, e.images.removed)
}

func TestListPropertiesFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	e.createProperty(t, owner)
	_, err := e.props.Create(ctx, owner, CreatePropertyInput{
		Title: "Terrain", Location: "Dubréka", Price: dec(90000), Type: domain.PropertyTypeSale,
	}, nil)
	require.NoError(t, err)

	all, err := e.props.List(ctx, PropertyQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "Terrain", all[0].Title, "newest first")

	sale, err := e.props.List(ctx, PropertyQuery{Type: "Sale"})
	require.NoError(t, err)
	require.Len(t, sale, 1)

	cheap, err := e.props.List(ctx, PropertyQuery{MaxPrice: "3000", Location: "kipé"})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Villa Kipé", cheap[0].Title)

	_, err = e.props.List(ctx, PropertyQuery{MinPrice: "abc"})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))
}

func TestListByOwnerSelfOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	other := e.register(t, "c@x.com", domain.RoleOwner)
	e.createProperty(t, owner)

	mine, err := e.props.ListByOwner(ctx, owner, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = e.props.ListByOwner(ctx, other, owner.ID)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestDeletePropertyCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "b@x.com", domain.RoleOwner)
	tenant := e.register(t, "a@x.com", domain.RoleTenant)
	prop := e.createProperty(t, owner)
	c := e.createContract(t, owner, prop.ID, tenant.ID)
	_, err := e.payments.Create(ctx, owner, CreatePaymentInput{ContractID: c.ID, Amount: dec(2500), PaymentMethod: domain.PaymentMethodCash})
	require.NoError(t, err)

	summary, err := e.props.Delete(ctx, owner, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, &domain.CascadeSummary{Properties: 1, Contracts: 1, Payments: 1}, summary)

	list, err := e.payments.ListForPrincipal(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, list)
}
