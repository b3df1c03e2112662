package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	StorageDriver      string
	CORSAllowedOrigins []string

	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	// Empty means the socket address is always the client.
	TrustedProxies []netip.Prefix

	Database DatabaseConfig

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// RedisURL is optional. When empty, rate limiting stays in process.
	RedisURL string

	UploadDir    string
	MaxFileSize  int64
	UploadPrefix string

	ContractSweepIntervalMinutes int

	LoginLimit    RateLimit
	RegisterLimit RateLimit
	APILimit      RateLimit
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RateLimit is a request budget per window
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 5000)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	lifetime, err := getInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	ttlHours, err := getInt("TOKEN_TTL_HOURS", 168)
	if err != nil {
		return nil, err
	}
	maxFileSize, err := getInt("MAX_FILE_SIZE", 5*1024*1024)
	if err != nil {
		return nil, err
	}
	sweep, err := getInt("CONTRACT_SWEEP_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	loginLimit, err := getRateLimit("RATE_LIMIT_LOGIN", RateLimit{Requests: 5, Window: 15 * time.Minute})
	if err != nil {
		return nil, err
	}
	registerLimit, err := getRateLimit("RATE_LIMIT_REGISTER", RateLimit{Requests: 3, Window: time.Hour})
	if err != nil {
		return nil, err
	}
	apiLimit, err := getRateLimit("RATE_LIMIT_API", RateLimit{Requests: 100, Window: 15 * time.Minute})
	if err != nil {
		return nil, err
	}

	proxies, err := parsePrefixes("TRUSTED_PROXIES")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerPort:    port,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		TrustedProxies: proxies,
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "kushtati"),
			Password:        getEnv("DB_PASSWORD", "dev"),
			Name:            getEnv("DB_NAME", "kushtati_immo"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: time.Duration(lifetime) * time.Minute,
		},
		JWTSecret:                    os.Getenv("JWT_SECRET"),
		JWTIssuer:                    getEnv("JWT_ISSUER", "kushtati-immo"),
		TokenTTL:                     time.Duration(ttlHours) * time.Hour,
		RedisURL:                     os.Getenv("REDIS_URL"),
		UploadDir:                    getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize:                  int64(maxFileSize),
		UploadPrefix:                 "/uploads/",
		ContractSweepIntervalMinutes: sweep,
		LoginLimit:                   loginLimit,
		RegisterLimit:                registerLimit,
		APILimit:                     apiLimit,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	switch c.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want postgres or memory", c.StorageDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getRateLimit reads <prefix>_REQUESTS and <prefix>_WINDOW_MINUTES.
func getRateLimit(prefix string, def RateLimit) (RateLimit, error) {
	reqs, err := getInt(prefix+"_REQUESTS", def.Requests)
	if err != nil {
		return RateLimit{}, err
	}
	minutes, err := getInt(prefix+"_WINDOW_MINUTES", int(def.Window/time.Minute))
	if err != nil {
		return RateLimit{}, err
	}
	return RateLimit{Requests: reqs, Window: time.Duration(minutes) * time.Minute}, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// parsePrefixes reads a comma separated list of IPs or CIDR ranges.
func parsePrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range parseCSVEnv(key, nil) {
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, raw, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
