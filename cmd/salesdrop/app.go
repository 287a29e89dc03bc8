package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/database"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
)

// app carries state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	memory bool
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg, os.Stderr)
	slog.SetDefault(a.logger)
	return nil
}

// openReports returns the report repository and a release func.
func (a *app) openReports(ctx context.Context) (repository.ReportRepository, func(), error) {
	if a.memory {
		return repository.NewMemoryReportStore(), func() {}, nil
	}
	pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repository.NewPostgresReportStore(pool), pool.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
