// Package main is the entry point for the stockflow background worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"stockflow/internal/app"
	"stockflow/internal/config"
	"stockflow/internal/infrastructure/cache"
	"stockflow/internal/infrastructure/jobs"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/repos"
	"stockflow/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting stockflow worker", "reconcile_cron", cfg.ReconcileCron)

	pool, err := postgres.NewPool(ctx, cfg.Pool())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	repositories, err := repos.New(postgres.NewTxManagerWithOptions(pool, cfg.TxOptions()))
	if err != nil {
		return fmt.Errorf("build repositories: %w", err)
	}
	services := app.NewServices(repositories)

	rdb, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	reconcileTask, err := jobs.NewReconcileTask("schedule")
	if err != nil {
		return err
	}
	job := jobs.NewReconcileJob(services.Reconcile, redislock.New(rdb))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		Concurrency: 2,
		Logger:      log,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerReconcile, Handler: job.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: reconcileTask},
		},
	})
	if err != nil {
		return fmt.Errorf("build worker: %w", err)
	}

	return worker.Run(ctx)
}
