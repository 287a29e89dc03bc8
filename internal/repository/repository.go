// Package repository persists sales reports. Absence is not an error: FindByID
// reports it through its boolean result, and only infrastructure failures are
// returned as errors.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

// ReportStore is the persistence contract the pipeline depends on.
type ReportStore interface {
	Save(ctx context.Context, report *model.SalesReport) error
	FindByID(ctx context.Context, id string) (*model.SalesReport, bool, error)
}

// ReportLister is implemented by stores that can search.
type ReportLister interface {
	List(ctx context.Context, filter ReportFilter) ([]*model.SalesReport, error)
}

// ReportRepository combines both contracts.
type ReportRepository interface {
	ReportStore
	ReportLister
}

var errListUnsupported = errors.New("report store does not support listing")

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 50

// ReportFilter narrows List. Zero values mean "any". From and To follow the
// containment rule of SalesReport.IsWithinPeriod.
type ReportFilter struct {
	Status model.ReportStatus
	Bucket string
	Key    string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Match applies the filter to one report.
func (f ReportFilter) Match(r *model.SalesReport) bool {
	if f.Status != "" && r.Status() != f.Status {
		return false
	}
	loc := r.Location()
	if f.Bucket != "" && loc.Bucket != f.Bucket {
		return false
	}
	if f.Key != "" && loc.Key != f.Key {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	p := r.Period()
	if !p.Complete() {
		return false
	}
	if !f.From.IsZero() && p.Start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.End.After(f.To) {
		return false
	}
	return true
}

func (f ReportFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
