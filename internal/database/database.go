package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is the DDL for the sales_reports table. Period bounds, leading
// products and the error message are nullable because failed reports may
// not know them.
const Schema = `
CREATE TABLE IF NOT EXISTS sales_reports (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	columns TEXT[] NOT NULL DEFAULT '{}',
	row_count INTEGER NOT NULL CHECK (row_count >= 0),
	period_start TIMESTAMPTZ,
	period_end TIMESTAMPTZ,
	total_items_sold BIGINT NOT NULL CHECK (total_items_sold >= 0),
	total_sales DOUBLE PRECISION NOT NULL CHECK (total_sales >= 0),
	best_seller TEXT,
	top_revenue_product TEXT,
	bucket TEXT NOT NULL,
	object_key TEXT NOT NULL,
	status TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_sales_reports_status ON sales_reports(status);
CREATE INDEX IF NOT EXISTS idx_sales_reports_location ON sales_reports(bucket, object_key);
CREATE INDEX IF NOT EXISTS idx_sales_reports_processed_at ON sales_reports(processed_at DESC);`

// Execer is the part of a pool EnsureSchema needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the sales_reports table if needed. The migration lives
// in code so docker-compose can bootstrap everything.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
