package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SalesDrop/internal/api"
	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/database"
	"github.com/dharsanguruparan/SalesDrop/internal/queue"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/s3storage"
	"github.com/dharsanguruparan/SalesDrop/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet.
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
	reports := repository.NewCachedReportStore(repository.NewPostgresReportStore(pool), cfg.CacheSize, cfg.CacheTTL)

	store, err := s3storage.New(cfg, logger)
	if err != nil {
		logger.Error("init storage", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		logger.Error("ensure buckets", "error", err)
		os.Exit(1)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	srv := api.New(cfg, reports, store, queue.NewClient(client), signing.NewSigner(cfg.SigningSecret), logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}
