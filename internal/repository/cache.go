package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dharsanguruparan/SalesDrop/internal/metrics"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

// CachedReportStore is a read-through LRU in front of another store. Entries
// hold serialized documents so cached values cannot be mutated by callers.
// Absence is not cached.
type CachedReportStore struct {
	next  ReportStore
	cache *expirable.LRU[string, model.Document]
}

var _ ReportRepository = (*CachedReportStore)(nil)

// NewCachedReportStore wraps next with a cache of maxSize entries living ttl.
func NewCachedReportStore(next ReportStore, maxSize int, ttl time.Duration) *CachedReportStore {
	return &CachedReportStore{
		next:  next,
		cache: expirable.NewLRU[string, model.Document](maxSize, nil, ttl),
	}
}

// Save writes through and evicts the cached copy, so the next read sees
// whichever write the backing store kept.
func (c *CachedReportStore) Save(ctx context.Context, report *model.SalesReport) error {
	err := c.next.Save(ctx, report)
	c.cache.Remove(report.ID())
	return err
}

// FindByID serves from the cache when possible.
func (c *CachedReportStore) FindByID(ctx context.Context, id string) (*model.SalesReport, bool, error) {
	if doc, ok := c.cache.Get(id); ok {
		if report, err := model.FromDocument(doc); err == nil {
			metrics.CacheHitsTotal.Inc()
			return report, true, nil
		}
		c.cache.Remove(id)
	}
	metrics.CacheMissesTotal.Inc()
	report, ok, err := c.next.FindByID(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.cache.Add(id, report.Serialize())
	return report, true, nil
}

// List bypasses the cache. It fails when the wrapped store cannot list.
func (c *CachedReportStore) List(ctx context.Context, filter ReportFilter) ([]*model.SalesReport, error) {
	lister, ok := c.next.(ReportLister)
	if !ok {
		return nil, errListUnsupported
	}
	return lister.List(ctx, filter)
}
