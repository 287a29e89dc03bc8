// Package model contains the domain entities shared across packages. Entities
// validate themselves at construction, so a value obtained from a constructor
// is always in a legal state.
package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the terminal outcome of an extraction attempt.
type ReportStatus string

const (
	StatusSuccess ReportStatus = "success"
	StatusFailed  ReportStatus = "failed"
)

const (
	// ReportType is written into every serialized report.
	ReportType = "sales_report"
	// DefaultLargeThreshold is the row count above which a report counts as large.
	DefaultLargeThreshold = 1000

	reportEntity = "sales report"
)

// now is swapped in tests that need to control processedAt.
var now = func() time.Time { return time.Now().UTC() }

// Location identifies an object in remote object storage.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Key
}

// Period is the inclusive date range covered by a report. A zero Start or End
// means the bound is unknown.
type Period struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both bounds are known.
func (p Period) Complete() bool {
	return !p.Start.IsZero() && !p.End.IsZero()
}

// ReportParams carries everything needed to build a SalesReport.
type ReportParams struct {
	FileName          string
	Columns           []string
	RowCount          int
	Period            Period
	TotalItemsSold    int64
	TotalSales        float64
	BestSeller        *string
	TopRevenueProduct *string
	Bucket            string
	Key               string
	// ProcessedAt defaults to the current time when zero.
	ProcessedAt time.Time
}

// SalesReport is the validated outcome of one extraction attempt. Everything
// except the status is fixed at construction; MarkFailed is the only mutation.
type SalesReport struct {
	id                string
	fileName          string
	columns           []string
	rowCount          int
	period            Period
	totalItemsSold    int64
	totalSales        float64
	bestSeller        *string
	topRevenueProduct *string
	location          Location
	status            ReportStatus
	processedAt       time.Time
	errorMessage      string
}

// NewSalesReport validates params and returns a successful report. Rules are
// checked in a fixed order and the first violation is returned.
func NewSalesReport(p ReportParams) (*SalesReport, error) {
	if err := validateReport(p, true); err != nil {
		return nil, err
	}
	return buildReport(uuid.NewString(), p, StatusSuccess, ""), nil
}

// NewFailedReport builds a report for an attempt that failed before the data
// could be fully extracted. Columns and period may be empty; identity, numeric
// and message rules still apply.
func NewFailedReport(p ReportParams, errorMessage string) (*SalesReport, error) {
	if err := validateReport(p, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(errorMessage) == "" {
		return nil, invalid(reportEntity, "errorMessage", "must not be empty")
	}
	return buildReport(uuid.NewString(), p, StatusFailed, errorMessage), nil
}

func buildReport(id string, p ReportParams, status ReportStatus, errorMessage string) *SalesReport {
	processedAt := p.ProcessedAt
	if processedAt.IsZero() {
		processedAt = now()
	}
	return &SalesReport{
		id:                id,
		fileName:          p.FileName,
		columns:           append([]string(nil), p.Columns...),
		rowCount:          p.RowCount,
		period:            p.Period,
		totalItemsSold:    p.TotalItemsSold,
		totalSales:        p.TotalSales,
		bestSeller:        cloneString(p.BestSeller),
		topRevenueProduct: cloneString(p.TopRevenueProduct),
		location:          Location{Bucket: p.Bucket, Key: p.Key},
		status:            status,
		processedAt:       processedAt,
		errorMessage:      errorMessage,
	}
}

func validateReport(p ReportParams, success bool) error {
	if strings.TrimSpace(p.FileName) == "" {
		return invalid(reportEntity, "fileName", "must not be empty")
	}
	if strings.TrimSpace(p.Bucket) == "" {
		return invalid(reportEntity, "bucket", "must not be empty")
	}
	if strings.TrimSpace(p.Key) == "" {
		return invalid(reportEntity, "key", "must not be empty")
	}
	if success && len(p.Columns) == 0 {
		return invalid(reportEntity, "columns", "at least one column is required")
	}
	if p.RowCount < 0 {
		return invalid(reportEntity, "rowCount", "must be non-negative")
	}
	if success {
		if p.Period.Start.IsZero() {
			return invalid(reportEntity, "period", "start is required")
		}
		if p.Period.End.IsZero() {
			return invalid(reportEntity, "period", "end is required")
		}
	}
	if p.Period.Complete() && p.Period.End.Before(p.Period.Start) {
		return invalid(reportEntity, "period", "end is before start")
	}
	if p.TotalItemsSold < 0 {
		return invalid(reportEntity, "totalItemsSold", "must be non-negative")
	}
	if math.IsNaN(p.TotalSales) || math.IsInf(p.TotalSales, 0) {
		return invalid(reportEntity, "totalSales", "must be a finite number")
	}
	if p.TotalSales < 0 {
		return invalid(reportEntity, "totalSales", "must be non-negative")
	}
	if p.BestSeller != nil && strings.TrimSpace(*p.BestSeller) == "" {
		return invalid(reportEntity, "bestSeller", "must be null or a non-empty string")
	}
	if p.TopRevenueProduct != nil && strings.TrimSpace(*p.TopRevenueProduct) == "" {
		return invalid(reportEntity, "topRevenueProduct", "must be null or a non-empty string")
	}
	return nil
}

// MarkFailed moves the report to the failed state. Calling it again replaces
// the message and timestamp; the latest failure wins. processedAt never moves
// backwards.
func (r *SalesReport) MarkFailed(errorMessage string) error {
	if strings.TrimSpace(errorMessage) == "" {
		return invalid(reportEntity, "errorMessage", "must not be empty")
	}
	ts := now()
	if ts.Before(r.processedAt) {
		ts = r.processedAt
	}
	r.status = StatusFailed
	r.errorMessage = errorMessage
	r.processedAt = ts
	return nil
}

// IsWithinPeriod reports whether the report period lies entirely inside
// [start, end]. Reports without a complete period are never within a range.
func (r *SalesReport) IsWithinPeriod(start, end time.Time) bool {
	if !r.period.Complete() {
		return false
	}
	return !r.period.Start.Before(start) && !r.period.End.After(end)
}

// IsLarge reports whether more than threshold rows were processed.
func (r *SalesReport) IsLarge(threshold int) bool {
	return r.rowCount > threshold
}

func (r *SalesReport) ID() string { return r.id }
func (r *SalesReport) FileName() string { return r.fileName }
func (r *SalesReport) Columns() []string { return append([]string(nil), r.columns...) }
func (r *SalesReport) RowCount() int { return r.rowCount }
func (r *SalesReport) Period() Period { return r.period }
func (r *SalesReport) TotalItemsSold() int64 { return r.totalItemsSold }
func (r *SalesReport) TotalSales() float64 { return r.totalSales }
func (r *SalesReport) BestSeller() *string { return cloneString(r.bestSeller) }
func (r *SalesReport) TopRevenueProduct() *string { return cloneString(r.topRevenueProduct) }
func (r *SalesReport) Location() Location { return r.location }
func (r *SalesReport) Status() ReportStatus { return r.status }
func (r *SalesReport) ProcessedAt() time.Time { return r.processedAt }
func (r *SalesReport) Failed() bool { return r.status == StatusFailed }

// ErrorMessage is empty unless the report failed.
func (r *SalesReport) ErrorMessage() string { return r.errorMessage }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
