package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func validParams() ReportParams {
	return ReportParams{
		FileName:          "january.csv",
		Columns:           []string{"date", "product", "quantity", "total"},
		RowCount:          42,
		Period:            Period{Start: day("2024-01-01"), End: day("2024-01-31")},
		TotalItemsSold:    120,
		TotalSales:        1520.5,
		BestSeller:        strPtr("Widget"),
		TopRevenueProduct: strPtr("Gadget"),
		Bucket:            "sales-raw",
		Key:               "uploads/january.csv",
	}
}

func TestNewSalesReport_Valid(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, r.Status())
	assert.NotEmpty(t, r.ID())
	assert.Empty(t, r.ErrorMessage())
	assert.False(t, r.ProcessedAt().IsZero())
	assert.Equal(t, Location{Bucket: "sales-raw", Key: "uploads/january.csv"}, r.Location())
}

func TestNewSalesReport_NullOptionalStrings(t *testing.T) {
	p := validParams()
	p.BestSeller = nil
	p.TopRevenueProduct = nil

	r, err := NewSalesReport(p)
	require.NoError(t, err)
	assert.Nil(t, r.BestSeller())
	assert.Nil(t, r.TopRevenueProduct())
}

func TestNewSalesReport_UniqueIDs(t *testing.T) {
	a, err := NewSalesReport(validParams())
	require.NoError(t, err)
	b, err := NewSalesReport(validParams())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewSalesReport_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReportParams)
		field  string
	}{
		{"empty file name", func(p *ReportParams) { p.FileName = "" }, "fileName"},
		{"blank file name", func(p *ReportParams) { p.FileName = "   " }, "fileName"},
		{"empty bucket", func(p *ReportParams) { p.Bucket = "" }, "bucket"},
		{"empty key", func(p *ReportParams) { p.Key = "" }, "key"},
		{"no columns", func(p *ReportParams) { p.Columns = nil }, "columns"},
		{"negative row count", func(p *ReportParams) { p.RowCount = -1 }, "rowCount"},
		{"missing period start", func(p *ReportParams) { p.Period.Start = time.Time{} }, "period"},
		{"missing period end", func(p *ReportParams) { p.Period.End = time.Time{} }, "period"},
		{"period end before start", func(p *ReportParams) { p.Period.End = day("2023-12-31") }, "period"},
		{"negative items sold", func(p *ReportParams) { p.TotalItemsSold = -3 }, "totalItemsSold"},
		{"negative total sales", func(p *ReportParams) { p.TotalSales = -0.01 }, "totalSales"},
		{"NaN total sales", func(p *ReportParams) { p.TotalSales = math.NaN() }, "totalSales"},
		{"empty best seller", func(p *ReportParams) { p.BestSeller = strPtr("") }, "bestSeller"},
		{"blank top revenue product", func(p *ReportParams) { p.TopRevenueProduct = strPtr(" ") }, "topRevenueProduct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			r, err := NewSalesReport(p)
			assert.Nil(t, r)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewSalesReport_FirstViolationWins(t *testing.T) {
	p := validParams()
	p.FileName = ""
	p.RowCount = -1
	p.TotalSales = -1

	_, err := NewSalesReport(p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fileName", verr.Field)
}

func TestNewSalesReport_ParamsAreCopied(t *testing.T) {
	p := validParams()
	r, err := NewSalesReport(p)
	require.NoError(t, err)

	p.Columns[0] = "mutated"
	*p.BestSeller = "mutated"

	assert.Equal(t, "date", r.Columns()[0])
	assert.Equal(t, "Widget", *r.BestSeller())
}

func TestMarkFailed(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)
	before := r.ProcessedAt()

	require.NoError(t, r.MarkFailed("disk error"))

	assert.Equal(t, StatusFailed, r.Status())
	assert.Equal(t, "disk error", r.ErrorMessage())
	assert.False(t, r.ProcessedAt().Before(before))
	// business fields survive the transition
	assert.Equal(t, 42, r.RowCount())
	assert.Equal(t, []string{"date", "product", "quantity", "total"}, r.Columns())
}

func TestMarkFailed_LatestFailureWins(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	restore := now
	defer func() { now = restore }()
	first := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return first }
	require.NoError(t, r.MarkFailed("disk error"))

	second := first.Add(time.Minute)
	now = func() time.Time { return second }
	require.NoError(t, r.MarkFailed("parser crashed"))

	assert.Equal(t, "parser crashed", r.ErrorMessage())
	assert.Equal(t, second, r.ProcessedAt())
}

func TestMarkFailed_ProcessedAtNeverMovesBack(t *testing.T) {
	p := validParams()
	p.ProcessedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewSalesReport(p)
	require.NoError(t, err)

	restore := now
	defer func() { now = restore }()
	now = func() time.Time { return p.ProcessedAt.Add(-time.Hour) }

	require.NoError(t, r.MarkFailed("clock skew"))
	assert.Equal(t, p.ProcessedAt, r.ProcessedAt())
}

func TestMarkFailed_RejectsEmptyMessage(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	err = r.MarkFailed("  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "errorMessage", verr.Field)
	assert.Equal(t, StatusSuccess, r.Status())
}

func TestNewFailedReport(t *testing.T) {
	r, err := NewFailedReport(ReportParams{
		FileName: "broken.csv",
		Bucket:   "sales-raw",
		Key:      "uploads/broken.csv",
	}, "object not found")
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, r.Status())
	assert.Equal(t, "object not found", r.ErrorMessage())
	assert.Empty(t, r.Columns())
	assert.False(t, r.Period().Complete())
}

func TestNewFailedReport_Invalid(t *testing.T) {
	_, err := NewFailedReport(ReportParams{FileName: "x.csv", Bucket: "b"}, "boom")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "key", verr.Field)

	_, err = NewFailedReport(ReportParams{FileName: "x.csv", Bucket: "b", Key: "k"}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "errorMessage", verr.Field)

	_, err = NewFailedReport(ReportParams{FileName: "x.csv", Bucket: "b", Key: "k", RowCount: -2}, "boom")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rowCount", verr.Field)
}

func TestIsWithinPeriod(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	assert.True(t, r.IsWithinPeriod(day("2024-01-01"), day("2024-02-01")))
	assert.True(t, r.IsWithinPeriod(day("2024-01-01"), day("2024-01-31")), "bounds are inclusive")
	assert.False(t, r.IsWithinPeriod(day("2024-01-15"), day("2024-01-20")))
	assert.False(t, r.IsWithinPeriod(day("2024-01-02"), day("2024-02-01")))
}

func TestIsWithinPeriod_IncompletePeriod(t *testing.T) {
	r, err := NewFailedReport(ReportParams{FileName: "x.csv", Bucket: "b", Key: "k"}, "boom")
	require.NoError(t, err)
	assert.False(t, r.IsWithinPeriod(day("2000-01-01"), day("2100-01-01")))
}

func TestIsLarge(t *testing.T) {
	p := validParams()
	p.RowCount = 1000
	r, err := NewSalesReport(p)
	require.NoError(t, err)
	assert.False(t, r.IsLarge(DefaultLargeThreshold))

	p.RowCount = 1001
	r, err = NewSalesReport(p)
	require.NoError(t, err)
	assert.True(t, r.IsLarge(DefaultLargeThreshold))
	assert.False(t, r.IsLarge(5000))
}

func TestSerialize_RoundTrip(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	doc := r.Serialize()
	assert.Equal(t, ReportType, doc.Type)

	restored, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, r, restored)
}

func TestSerialize_JSONRoundTrip(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	data, err := json.Marshal(r.Serialize())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	restored, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, r.Serialize(), restored.Serialize())
}

func TestSerialize_ErrorMessagePresence(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	data, err := json.Marshal(r.Serialize())
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "errorMessage")
	for _, name := range []string{"id", "fileName", "type", "columns", "rowCount", "period", "totalItemsSold",
		"totalSales", "bestSeller", "topRevenueProduct", "bucket", "key", "status", "processedAt"} {
		assert.Contains(t, fields, name)
	}

	require.NoError(t, r.MarkFailed("disk error"))
	data, err = json.Marshal(r.Serialize())
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "disk error", fields["errorMessage"])
	assert.Equal(t, "failed", fields["status"])
}

func TestSerialize_FailedReportRoundTrip(t *testing.T) {
	r, err := NewFailedReport(ReportParams{FileName: "x.csv", Bucket: "b", Key: "k"}, "boom")
	require.NoError(t, err)

	doc := r.Serialize()
	assert.Nil(t, doc.Period.Start)
	assert.NotNil(t, doc.Columns)

	restored, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, r.Serialize(), restored.Serialize())
}

func TestFromDocument_Rejects(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Document)
		field  string
	}{
		{"bad id", func(d *Document) { d.ID = "nope" }, "id"},
		{"wrong type", func(d *Document) { d.Type = "invoice" }, "type"},
		{"unknown status", func(d *Document) { d.Status = "pending" }, "status"},
		{"success with message", func(d *Document) { d.ErrorMessage = "boom" }, "errorMessage"},
		{"failed without message", func(d *Document) { d.Status = StatusFailed }, "errorMessage"},
		{"missing processedAt", func(d *Document) { d.ProcessedAt = time.Time{} }, "processedAt"},
		{"success without columns", func(d *Document) { d.Columns = nil }, "columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := r.Serialize()
			tt.mutate(&doc)
			_, err := FromDocument(doc)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSummary(t *testing.T) {
	r, err := NewSalesReport(validParams())
	require.NoError(t, err)

	s := r.Summary()
	assert.Equal(t, r.ID(), s.ID)
	assert.Equal(t, "january.csv", s.FileName)
	assert.Equal(t, 1520.5, s.TotalSales)
	assert.Equal(t, int64(120), s.TotalItemsSold)
	assert.Equal(t, "Widget", *s.BestSeller)
	assert.Equal(t, day("2024-01-01"), *s.Period.Start)
	assert.Equal(t, StatusSuccess, s.Status)
}
