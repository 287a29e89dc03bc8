// Command server runs the API and the extraction workers in one process,
// keeping reports in memory. Object storage is still required.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/SalesDrop/internal/api"
	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/pipeline"
	"github.com/dharsanguruparan/SalesDrop/internal/processing"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/s3storage"
	"github.com/dharsanguruparan/SalesDrop/internal/signing"
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

	reports := repository.NewMemoryReportStore()
	p := pipeline.New(source, reports,
		pipeline.WithArchiver(store),
		pipeline.WithLargeThreshold(cfg.LargeReportRows),
		pipeline.WithLogger(logger),
	)
	processor := processing.New(p, cfg.ProcessingPool, logger)
	processor.Start(ctx)
	defer processor.Stop()

	srv := api.New(cfg, reports, store, processor, signing.NewSigner(cfg.SigningSecret), logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
