package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(5242880), cfg.MaxFileSize)
	assert.Equal(t, RateLimit{Requests: 5, Window: 15 * time.Minute}, cfg.LoginLimit)
	assert.Equal(t, RateLimit{Requests: 3, Window: time.Hour}, cfg.RegisterLimit)
	assert.Equal(t, RateLimit{Requests: 100, Window: 15 * time.Minute}, cfg.APILimit)
	assert.NotEmpty(t, cfg.JWTSecret, "development falls back to a dev secret")
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_API_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_API_WINDOW_MINUTES", "1")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, RateLimit{Requests: 10, Window: time.Minute}, cfg.APILimit)
	assert.Equal(t, "memory", cfg.StorageDriver)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "SERVER_PORT")
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
	}, cfg.TrustedProxies)
}

func TestLoadRejectsBadTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "load-balancer")
	_, err := Load()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}
