package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

func TestMemoryReportStore_SaveFind(t *testing.T) {
	store := NewMemoryReportStore()
	report := sampleReport(t, "jan.csv")

	require.NoError(t, store.Save(context.Background(), report))
	got, ok, err := store.FindByID(context.Background(), report.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.Serialize(), got.Serialize())

	_, ok, err = store.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryReportStore_SaveDoesNotAlias(t *testing.T) {
	store := NewMemoryReportStore()
	report := sampleReport(t, "jan.csv")
	require.NoError(t, store.Save(context.Background(), report))

	require.NoError(t, report.MarkFailed("later failure"))
	got, _, err := store.FindByID(context.Background(), report.ID())
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, got.Status())

	require.NoError(t, store.Save(context.Background(), report))
	got, _, err = store.FindByID(context.Background(), report.ID())
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryReportStore_ConcurrentSaves(t *testing.T) {
	store := NewMemoryReportStore()
	reports := make([]*model.SalesReport, 50)
	for i := range reports {
		reports[i] = sampleReport(t, fmt.Sprintf("file-%d.csv", i))
	}
	var wg sync.WaitGroup
	for _, r := range reports {
		wg.Add(1)
		go func(r *model.SalesReport) {
			defer wg.Done()
			assert.NoError(t, store.Save(context.Background(), r))
		}(r)
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}

func TestMemoryReportStore_List(t *testing.T) {
	store := NewMemoryReportStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(context.Background(), sampleReport(t, fmt.Sprintf("f%d.csv", i))))
	}
	failed := sampleReport(t, "bad.csv")
	require.NoError(t, failed.MarkFailed("boom"))
	require.NoError(t, store.Save(context.Background(), failed))

	all, err := store.List(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	onlyFailed, err := store.List(context.Background(), ReportFilter{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Len(t, onlyFailed, 1)
	assert.Equal(t, failed.ID(), onlyFailed[0].ID())

	byKey, err := store.List(context.Background(), ReportFilter{Key: "f3.csv"})
	require.NoError(t, err)
	assert.Len(t, byKey, 1)

	page, err := store.List(context.Background(), ReportFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	empty, err := store.List(context.Background(), ReportFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReportFilter_Period(t *testing.T) {
	r := sampleReport(t, "jan.csv")
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, ReportFilter{From: jan1, To: jan31}.Match(r))
	assert.True(t, ReportFilter{From: jan1}.Match(r))
	assert.False(t, ReportFilter{From: jan1.AddDate(0, 0, 1)}.Match(r))
	assert.False(t, ReportFilter{To: jan31.AddDate(0, 0, -1)}.Match(r))
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, r *model.SalesReport) error {
	return m.Called(r.ID()).Error(0)
}

func (m *mockStore) FindByID(ctx context.Context, id string) (*model.SalesReport, bool, error) {
	args := m.Called(id)
	r, _ := args.Get(0).(*model.SalesReport)
	return r, args.Bool(1), args.Error(2)
}

func TestCachedReportStore_ReadThrough(t *testing.T) {
	report := sampleReport(t, "jan.csv")
	next := new(mockStore)
	next.On("FindByID", report.ID()).Return(report, true, nil).Once()

	cache := NewCachedReportStore(next, 8, time.Minute)
	for i := 0; i < 3; i++ {
		got, ok, err := cache.FindByID(context.Background(), report.ID())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, report.ID(), got.ID())
	}
	next.AssertExpectations(t)
}

func TestCachedReportStore_AbsenceNotCached(t *testing.T) {
	next := new(mockStore)
	next.On("FindByID", "missing").Return(nil, false, nil).Twice()

	cache := NewCachedReportStore(next, 8, time.Minute)
	for i := 0; i < 2; i++ {
		_, ok, err := cache.FindByID(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	next.AssertExpectations(t)
}

func TestCachedReportStore_SaveFailureEvicts(t *testing.T) {
	report := sampleReport(t, "jan.csv")
	next := new(mockStore)
	next.On("Save", report.ID()).Return(nil).Once()
	next.On("Save", report.ID()).Return(errors.New("db down")).Once()
	next.On("FindByID", report.ID()).Return(report, true, nil).Once()

	cache := NewCachedReportStore(next, 8, time.Minute)
	require.NoError(t, cache.Save(context.Background(), report))
	assert.ErrorContains(t, cache.Save(context.Background(), report), "db down")

	_, ok, err := cache.FindByID(context.Background(), report.ID())
	require.NoError(t, err)
	assert.True(t, ok)
	next.AssertExpectations(t)
}

func TestCachedReportStore_ListNeedsLister(t *testing.T) {
	cache := NewCachedReportStore(new(mockStore), 8, time.Minute)
	_, err := cache.List(context.Background(), ReportFilter{})
	assert.ErrorIs(t, err, errListUnsupported)

	mem := NewMemoryReportStore()
	require.NoError(t, mem.Save(context.Background(), sampleReport(t, "a.csv")))
	got, err := NewCachedReportStore(mem, 8, time.Minute).List(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCachedReportStore_SaveDefersToBackingStore(t *testing.T) {
	ctx := context.Background()
	report := sampleReport(t, "jan.csv")
	mem := NewMemoryReportStore()
	cache := NewCachedReportStore(mem, 8, time.Minute)

	require.NoError(t, cache.Save(ctx, report))
	// A concurrent writer lands its version in the backing store last.
	require.NoError(t, report.MarkFailed("archive report: bucket full"))
	require.NoError(t, mem.Save(ctx, report))

	got, ok, err := cache.FindByID(ctx, report.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Failed())
	assert.Equal(t, "archive report: bucket full", got.ErrorMessage())
}
