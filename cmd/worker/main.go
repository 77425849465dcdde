// Command worker drains the auth event queue into Postgres. Run it when
// the API is started with AUDIT_WORKER_INLINE=false.
package main

import (
	"authgate/internal/app/worker"
	"authgate/internal/domain/repository"
	"authgate/internal/platform/config"
	"authgate/internal/platform/database"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/queue"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authgate-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, os.Stdout)

	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required")
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return errors.New("the standalone worker needs STORE_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DBConnStr, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, log); err != nil {
		return err
	}

	rdb, err := queue.ConnectRedis(ctx, queue.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	w := worker.NewAuditWorker(rdb, repository.NewPgAuthEventRepository(db), cfg.AuditQueueName, log)
	w.Start(ctx)
	log.Info("worker exited cleanly")
	return nil
}
