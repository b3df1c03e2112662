package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kushtati/kushtati-immo-api/internal/app"
	"github.com/kushtati/kushtati-immo-api/internal/featureflags"
	"github.com/kushtati/kushtati-immo-api/internal/handler"
	"github.com/kushtati/kushtati-immo-api/internal/infrastructure/logger"
	"github.com/kushtati/kushtati-immo-api/internal/infrastructure/storage"
	"github.com/kushtati/kushtati-immo-api/internal/observability/tracing"
	"github.com/kushtati/kushtati-immo-api/internal/worker"
	"github.com/kushtati/kushtati-immo-api/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kushtati-immo-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting Kushtati Immo API",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.StorageDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// 4. Storage and schema
	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()
	if st.Migrate != nil {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// 5. Redis-backed rate limits when configured
	rdb, err := app.OpenRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(st.Ping),
		"redis":    nil,
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = rdb
	}
	limiters := app.NewLimiters(cfg, rdb, log)
	defer limiters.Stop()

	// 6. Uploads and services
	images, err := storage.NewLocalImageStore(cfg.UploadDir, cfg.UploadPrefix, cfg.MaxFileSize, log)
	if err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}
	svc := app.NewServices(cfg, st, images, log)

	// 7. Routes
	router := handler.NewRouter(handler.Deps{
		Config:          cfg,
		Logger:          log,
		Tokens:          svc.Tokens,
		Audit:           svc.Audit,
		Auth:            svc.Auth,
		Users:           svc.Users,
		Properties:      svc.Properties,
		Contracts:       svc.Contracts,
		Payments:        svc.Payments,
		Seeder:          svc.Seeder,
		Migrate:         st.Migrate,
		Uploads:         images.Handler(),
		LoginLimiter:    limiters.Login,
		RegisterLimiter: limiters.Register,
		APILimiter:      limiters.API,
		Checks:          checks,
		Tracing:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
	})

	// 8. Contract expiry sweep
	if featureflags.EnabledOr(featureflags.ContractExpiry, true) {
		interval := time.Duration(cfg.ContractSweepIntervalMinutes) * time.Minute
		sweeper := worker.NewContractExpiryWorker(svc.Contracts, log, interval)
		go sweeper.Start(ctx)
	}

	// 9. HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.Int("port", cfg.ServerPort),
			slog.String("auth", "jwt"),
			slog.Bool("redis_rate_limits", rdb != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
	return nil
}
