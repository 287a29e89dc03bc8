package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresReportStore keeps reports in the sales_reports table.
type PostgresReportStore struct {
	db DBTX
}

var _ ReportRepository = (*PostgresReportStore)(nil)

// NewPostgresReportStore constructs a store on top of a pool or transaction.
func NewPostgresReportStore(db DBTX) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

const reportColumns = `id, file_name, columns, row_count, period_start, period_end,
	total_items_sold, total_sales, best_seller, top_revenue_product,
	bucket, object_key, status, processed_at, error_message`

// Save inserts the report or replaces the row with the same id.
func (s *PostgresReportStore) Save(ctx context.Context, report *model.SalesReport) error {
	doc := report.Serialize()
	var errorMsg *string
	if doc.ErrorMessage != "" {
		errorMsg = &doc.ErrorMessage
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sales_reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			columns = EXCLUDED.columns,
			row_count = EXCLUDED.row_count,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			total_items_sold = EXCLUDED.total_items_sold,
			total_sales = EXCLUDED.total_sales,
			best_seller = EXCLUDED.best_seller,
			top_revenue_product = EXCLUDED.top_revenue_product,
			bucket = EXCLUDED.bucket,
			object_key = EXCLUDED.object_key,
			status = EXCLUDED.status,
			processed_at = EXCLUDED.processed_at,
			error_message = EXCLUDED.error_message
	`, doc.ID, doc.FileName, doc.Columns, doc.RowCount, doc.Period.Start, doc.Period.End,
		doc.TotalItemsSold, doc.TotalSales, doc.BestSeller, doc.TopRevenueProduct,
		doc.Bucket, doc.Key, string(doc.Status), doc.ProcessedAt, errorMsg)
	if err != nil {
		return fmt.Errorf("upsert report %s: %w", doc.ID, err)
	}
	return nil
}

// FindByID returns the report, or ok=false when no row matches.
func (s *PostgresReportStore) FindByID(ctx context.Context, id string) (*model.SalesReport, bool, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM sales_reports WHERE id=$1`, id)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select report %s: %w", id, err)
	}
	return report, true, nil
}

// List returns matching reports, newest first.
func (s *PostgresReportStore) List(ctx context.Context, filter ReportFilter) ([]*model.SalesReport, error) {
	where, args := buildListWhere(filter, 1)
	n := len(args) + 1
	query := `SELECT ` + reportColumns + ` FROM sales_reports` + where +
		fmt.Sprintf(` ORDER BY processed_at DESC, id LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*model.SalesReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// buildListWhere renders the filter as a WHERE clause with positional
// arguments starting at startArg.
func buildListWhere(f ReportFilter, startArg int) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	argNum := startArg
	add := func(cond string, v any) {
		conditions = append(conditions, fmt.Sprintf(cond, argNum))
		args = append(args, v)
		argNum++
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Bucket != "" {
		add("bucket = $%d", f.Bucket)
	}
	if f.Key != "" {
		add("object_key = $%d", f.Key)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		conditions = append(conditions, "period_start IS NOT NULL AND period_end IS NOT NULL")
	}
	if !f.From.IsZero() {
		add("period_start >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("period_end <= $%d", f.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanReport(row pgx.Row) (*model.SalesReport, error) {
	var (
		doc         model.Document
		status      string
		errorMsg    *string
		start, end  *time.Time
		processedAt time.Time
	)
	err := row.Scan(&doc.ID, &doc.FileName, &doc.Columns, &doc.RowCount, &start, &end,
		&doc.TotalItemsSold, &doc.TotalSales, &doc.BestSeller, &doc.TopRevenueProduct,
		&doc.Bucket, &doc.Key, &status, &processedAt, &errorMsg)
	if err != nil {
		return nil, err
	}
	doc.Type = model.ReportType
	doc.Status = model.ReportStatus(status)
	doc.Period = model.PeriodDocument{Start: utc(start), End: utc(end)}
	doc.ProcessedAt = processedAt.UTC()
	if errorMsg != nil {
		doc.ErrorMessage = *errorMsg
	}
	report, err := model.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", doc.ID, err)
	}
	return report, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
