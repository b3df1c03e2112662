package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/repository/memory"
)

func newSeeder(store *memory.Store) *Seeder {
	s := NewSeeder(store.Users(), store.Properties(), store.Contracts(), store.Payments(), store,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.cost = bcrypt.MinCost
	return s
}

func TestRunLoadsDataSetOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newSeeder(store)

	summary, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Users: 5, Properties: 8, Contracts: 3, Payments: 8}, summary)

	again, err := s.Run(ctx)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	owners, err := store.Users().ListByRole(ctx, domain.RoleOwner)
	require.NoError(t, err)
	assert.Len(t, owners, 2)
}

func TestSeededContractsKeepOwnerInvariant(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := newSeeder(store).Run(ctx)
	require.NoError(t, err)

	tenant, err := store.Users().GetByEmail(ctx, "ibrahima@gmail.com")
	require.NoError(t, err)
	list, err := store.Contracts().ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	prop, err := store.Properties().GetByID(ctx, list[0].PropertyID)
	require.NoError(t, err)
	assert.Equal(t, prop.OwnerID, list[0].OwnerID)

	paid, err := store.Payments().ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, paid, 4)
	for _, p := range paid {
		assert.Equal(t, tenant.ID, p.TenantID)
	}
}
