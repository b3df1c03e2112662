package featureflags

import (
	"os"
	"strings"
)

// Known flags.
const (
	// SetupRoutes exposes the bootstrap endpoints that create the schema and
	// load demo data over HTTP.
	SetupRoutes = "setup_routes"
	// DebugErrors adds the underlying cause to 500 responses.
	DebugErrors = "debug_errors"
	// ContractExpiry runs the background sweep that closes ended contracts.
	ContractExpiry = "contract_expiry"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return EnabledOr(name, false)
}

// EnabledOr is Enabled with a default for when the variable is unset.
func EnabledOr(name string, fallback bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
