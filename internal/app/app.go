// Package app assembles storage, limiters and services from configuration
// for the server and CLI binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/infrastructure/redis"
	"github.com/kushtati/kushtati-immo-api/internal/reliability/retry"
	"github.com/kushtati/kushtati-immo-api/internal/repository"
	"github.com/kushtati/kushtati-immo-api/internal/repository/memory"
	"github.com/kushtati/kushtati-immo-api/internal/security"
	"github.com/kushtati/kushtati-immo-api/internal/security/audit"
	"github.com/kushtati/kushtati-immo-api/internal/security/auth"
	"github.com/kushtati/kushtati-immo-api/internal/security/ratelimit"
	"github.com/kushtati/kushtati-immo-api/internal/seed"
	"github.com/kushtati/kushtati-immo-api/internal/service"
	"github.com/kushtati/kushtati-immo-api/pkg/config"
	"github.com/kushtati/kushtati-immo-api/pkg/database"
)

// Storage bundles the repositories of one backend.
type Storage struct {
	Driver     string
	Users      domain.UserRepository
	Properties domain.PropertyRepository
	Contracts  domain.ContractRepository
	Payments   domain.PaymentRepository
	Tx         domain.Transactor

	Ping func(ctx context.Context) error
	// Migrate is nil when the backend has no schema.
	Migrate func(ctx context.Context) error
	Close   func() error
}

// OpenStorage connects the configured backend. Postgres connections are
// retried with backoff so the API can start before the database.
func OpenStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	if cfg.StorageDriver == "memory" {
		store := memory.NewStore()
		log.Warn("using in-memory storage; data is lost on restart")
		return &Storage{
			Driver:     "memory",
			Users:      store.Users(),
			Properties: store.Properties(),
			Contracts:  store.Contracts(),
			Payments:   store.Payments(),
			Tx:         store,
			Ping:       store.Ping,
			Close:      func() error { return nil },
		}, nil
	}

	dbCfg := &database.Config{
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "connect database",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbCfg, log)
		})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db := pool.GetDB()
	return &Storage{
		Driver:     "postgres",
		Users:      repository.NewPostgresUserRepository(db, log),
		Properties: repository.NewPostgresPropertyRepository(db, log),
		Contracts:  repository.NewPostgresContractRepository(db, log),
		Payments:   repository.NewPostgresPaymentRepository(db, log),
		Tx:         database.NewTxManager(db, log),
		Ping:       pool.Health,
		Migrate: func(ctx context.Context) error {
			return database.Migrate(ctx, db, log)
		},
		Close: pool.Close,
	}, nil
}

// OpenRedis connects when REDIS_URL is set and returns nil otherwise.
func OpenRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return retry.Do(ctx, retry.DefaultConfig(), log, "connect redis",
		func(context.Context) (*redis.Client, error) {
			return redis.NewClient(cfg.RedisURL, log)
		})
}

// Limiters holds the three request budgets.
type Limiters struct {
	Login    ratelimit.Allower
	Register ratelimit.Allower
	API      ratelimit.Allower
	stops    []func()
}

// Stop releases the in-process limiters' background cleanup.
func (l *Limiters) Stop() {
	for _, stop := range l.stops {
		stop()
	}
}

// NewLimiters shares budgets across replicas through Redis when a client
// is given, and keeps them in process otherwise.
func NewLimiters(cfg *config.Config, rdb *redis.Client, log *slog.Logger) *Limiters {
	l := &Limiters{}
	build := func(name string, rl config.RateLimit) ratelimit.Allower {
		if rdb != nil {
			return ratelimit.NewRedisLimiter(rdb, name, rl.Requests, rl.Window, log)
		}
		mem := ratelimit.NewLimiter(rl.Requests, rl.Window)
		l.stops = append(l.stops, mem.Stop)
		return mem
	}
	l.Login = build("login", cfg.LoginLimit)
	l.Register = build("register", cfg.RegisterLimit)
	l.API = build("api", cfg.APILimit)
	return l
}

// Services is the application layer over one storage backend.
type Services struct {
	Tokens     *auth.TokenManager
	Audit      *audit.Logger
	Auth       *service.AuthService
	Users      *service.UserService
	Properties *service.PropertyService
	Contracts  *service.ContractService
	Payments   *service.PaymentService
	Seeder     *seed.Seeder
}

func NewServices(cfg *config.Config, st *Storage, images domain.ImageStore, log *slog.Logger) *Services {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	authz := security.NewAuthorizationService(log)
	auditLog := audit.NewLogger(log)
	return &Services{
		Tokens:     tokens,
		Audit:      auditLog,
		Auth:       service.NewAuthService(st.Users, tokens, log),
		Users:      service.NewUserService(st.Users, st.Tx, authz, auditLog, log),
		Properties: service.NewPropertyService(st.Properties, images, st.Tx, authz, auditLog, log),
		Contracts:  service.NewContractService(st.Contracts, st.Properties, st.Users, st.Tx, authz, auditLog, log),
		Payments:   service.NewPaymentService(st.Payments, st.Contracts, st.Tx, authz, auditLog, log),
		Seeder:     seed.NewSeeder(st.Users, st.Properties, st.Contracts, st.Payments, st.Tx, log),
	}
}
