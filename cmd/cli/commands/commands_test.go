package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushtati/kushtati-immo-api/internal/seed"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ENVIRONMENT", "development")
	t.Cleanup(func() {
		jsonOutput, verbose, confirm, skipMigrate = false, false, false, false
		storageDriver, userEmail = "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSeedCommandJSON(t *testing.T) {
	out, err := run(t, "seed", "--json")
	require.NoError(t, err)

	var summary seed.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, 5, summary.Users)
	assert.Equal(t, 8, summary.Payments)
}

func TestMigrateRejectsMemoryStorage(t *testing.T) {
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestCheckMemoryStorage(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	out, err := run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "database (memory)")
	assert.Contains(t, out, "not configured")
}

func TestPurgeUserRequiresConfirmation(t *testing.T) {
	_, err := run(t, "purge-user", "--email", "abdoul@gmail.com")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "--yes"))
}

func TestTokenUnknownEmail(t *testing.T) {
	_, err := run(t, "token", "--email", "nobody@kushtati.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account")
}
