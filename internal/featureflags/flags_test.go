package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	t.Setenv("FLAG_SETUP_ROUTES", "Yes")
	assert.True(t, Enabled(SetupRoutes))

	t.Setenv("FLAG_SETUP_ROUTES", "off")
	assert.False(t, Enabled(SetupRoutes))

	assert.False(t, Enabled("never_set_anywhere"))
}

func TestEnabledOr(t *testing.T) {
	assert.True(t, EnabledOr("unset_flag_for_test", true))

	t.Setenv("FLAG_CONTRACT_EXPIRY", "0")
	assert.False(t, EnabledOr(ContractExpiry, true))
}
