package main

import (
	"authgate/internal/api"
	"authgate/internal/api/handler"
	"authgate/internal/app/service"
	"authgate/internal/app/worker"
	"authgate/internal/common/security"
	"authgate/internal/domain/repository"
	"authgate/internal/platform/config"
	"authgate/internal/platform/database"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/queue"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authgate:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)
	if cfg.UsingDevJWTKey {
		log.Warn("JWT_SECRET not set, using the development signing key; tokens are forgeable by anyone with the source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize security primitives
	hasher, err := security.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenService(cfg.JWTKey, cfg.JWTExp)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	// 3. Initialize storage
	var (
		db         *sql.DB
		userRepo   repository.UserRepository
		eventsRepo repository.AuthEventRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err = database.Connect(ctx, cfg.DBConnStr, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}
		userRepo = repository.NewPgUserRepository(db)
		eventsRepo = repository.NewPgAuthEventRepository(db)
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; users are lost on restart")
		userRepo = repository.NewMemoryUserRepository()
		eventsRepo = repository.NewMemoryAuthEventRepository()
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// 4. Initialize Redis (optional)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = queue.ConnectRedis(ctx, queue.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	// 5. Initialize Services
	registry := metrics.NewRegistry()
	authMetrics := metrics.NewAuthMetrics(registry)

	authOpts := []service.AuthOption{
		service.WithAuthMetrics(authMetrics),
		service.WithAuthLogger(log),
	}
	var auditWorker *worker.AuditWorker
	if rdb != nil {
		authOpts = append(authOpts,
			service.WithLoginThrottle(service.NewRedisLoginThrottle(rdb, cfg.LoginMaxFailures, cfg.LoginFailureWindow)),
			service.WithAuditPublisher(service.NewRedisAuditPublisher(rdb, cfg.AuditQueueName)),
		)
		if cfg.AuditWorkerInline {
			auditWorker = worker.NewAuditWorker(rdb, eventsRepo, cfg.AuditQueueName, log)
		}
	} else {
		log.Warn("REDIS_ADDR not set, login throttling disabled and audit events written inline")
		authOpts = append(authOpts, service.WithAuditPublisher(service.NewRepositoryAuditPublisher(eventsRepo)))
	}

	authService, err := service.NewAuthService(userRepo, hasher, tokens, authOpts...)
	if err != nil {
		return err
	}
	userService := service.NewUserService(userRepo, hasher)
	auditService := service.NewAuditService(eventsRepo)

	if cfg.AdminUsername != "" || cfg.AdminPassword != "" {
		created, err := userService.BootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Info("admin user created", "username", cfg.AdminUsername)
		}
	}

	// 6. Start the audit worker
	var wg sync.WaitGroup
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if auditWorker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auditWorker.Start(workerCtx)
		}()
	}

	// 7. Initialize Router & HTTP Servers
	router := api.NewRouter(api.RouterDeps{
		Auth:    authService,
		Users:   userRepo,
		Tokens:  tokens,
		Admin:   handler.NewAdminHandler(userService, auditService),
		Metrics: authMetrics,
		Log:     log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	opsServer := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           metrics.OpsHandler(registry, readiness(db, rdb)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("API server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server: %w", err)
		}
	}()
	go func() {
		log.Info("ops server starting", "addr", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	// 8. Graceful Shutdown
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed, shutting down", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", "error", err)
	}
	workerCancel()
	wg.Wait()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server shutdown failed", "error", err)
	}

	log.Info("server and worker stopped")
	return runErr
}

func readiness(db *sql.DB, rdb *redis.Client) metrics.ReadinessChecker {
	return func(r *http.Request) bool {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil && db.PingContext(ctx) != nil {
			return false
		}
		if rdb != nil && rdb.Ping(ctx).Err() != nil {
			return false
		}
		return true
	}
}
