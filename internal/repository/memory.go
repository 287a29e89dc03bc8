package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

// MemoryReportStore keeps serialized copies of reports behind an RWMutex.
// Callers never share state with the store: Save copies in, FindByID and List
// rebuild fresh values.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]model.Document
}

var _ ReportRepository = (*MemoryReportStore)(nil)

// NewMemoryReportStore constructs an empty store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]model.Document)}
}

// Save inserts or replaces a report.
func (m *MemoryReportStore) Save(ctx context.Context, report *model.SalesReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := report.Serialize()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[doc.ID] = doc
	return nil
}

// FindByID returns a copy of the stored report.
func (m *MemoryReportStore) FindByID(ctx context.Context, id string) (*model.SalesReport, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	doc, ok := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	report, err := model.FromDocument(doc)
	if err != nil {
		return nil, false, fmt.Errorf("decode report %s: %w", id, err)
	}
	return report, true, nil
}

// List returns matching reports ordered like the Postgres store.
func (m *MemoryReportStore) List(ctx context.Context, filter ReportFilter) ([]*model.SalesReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	docs := make([]model.Document, 0, len(m.reports))
	for _, doc := range m.reports {
		docs = append(docs, doc)
	}
	m.mu.RUnlock()

	var matched []*model.SalesReport
	for _, doc := range docs {
		report, err := model.FromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("decode report %s: %w", doc.ID, err)
		}
		if filter.Match(report) {
			matched = append(matched, report)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].ProcessedAt(), matched[j].ProcessedAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return matched[i].ID() < matched[j].ID()
	})

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit := filter.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len reports how many reports are stored.
func (m *MemoryReportStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}
