package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/database"
	"github.com/dharsanguruparan/SalesDrop/internal/pipeline"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/s3storage"
	"github.com/dharsanguruparan/SalesDrop/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1)
	}
	reports := repository.NewPostgresReportStore(pool)

	store, err := s3storage.New(cfg, logger)
	if err != nil {
		logger.Error("init storage", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		logger.Error("ensure buckets", "error", err)
		os.Exit(1)
	}
	source, err := s3storage.NewSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("init source", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(source, reports,
		pipeline.WithArchiver(store),
		pipeline.WithLargeThreshold(cfg.LargeReportRows),
		pipeline.WithLogger(logger),
	)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.ProcessingPool,
	})
	processor := worker.NewProcessor(p, logger)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", "concurrency", cfg.ProcessingPool, "provider", cfg.StorageProvider)
	if err := server.Run(processor.Handler()); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
