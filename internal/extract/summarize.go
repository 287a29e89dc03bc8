package extract

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

const isoDate = "2006-01-02"

var (
	dateAliases     = []string{"date", "order_date", "sale_date", "sales_date", "sold_at", "transaction_date", "day"}
	productAliases  = []string{"product", "product_name", "item", "item_name", "sku", "description"}
	quantityAliases = []string{"quantity", "qty", "units", "units_sold", "items_sold", "count"}
	revenueAliases  = []string{"total", "revenue", "amount", "sales", "total_sales", "line_total", "subtotal"}
	priceAliases    = []string{"price", "unit_price", "price_per_unit", "unit_cost"}

	dateLayouts = []string{isoDate, time.RFC3339, "2006-01-02 15:04:05", "02/01/2006", "2006/01/02"}
)

// Metrics are the figures a sales report carries about its source table.
type Metrics struct {
	Columns           []string
	RowCount          int
	Period            model.Period
	TotalItemsSold    int64
	TotalSales        float64
	BestSeller        *string
	TopRevenueProduct *string
}

type columnIndex struct {
	date, product, quantity, revenue, price int
}

// Summarize computes totals, the sales period and the leading products. A
// table without a date column or without any dated row cannot produce a
// report and yields a *ParseError.
func Summarize(t Table) (Metrics, error) {
	idx := locateColumns(t.Columns)
	if idx.date < 0 {
		return Metrics{}, parseErr("table", 0, "no date column", nil)
	}

	m := Metrics{Columns: append([]string(nil), t.Columns...)}
	quantities := make(map[string]int64)
	revenues := make(map[string]float64)
	var start, end time.Time

	for i, row := range t.Rows {
		line := i + 2
		m.RowCount++

		if raw := cell(row, idx.date); raw != "" {
			d, err := parseDate(raw)
			if err != nil {
				return Metrics{}, parseErr("table", line, fmt.Sprintf("unreadable date %q", raw), nil)
			}
			if start.IsZero() || d.Before(start) {
				start = d
			}
			if end.IsZero() || d.After(end) {
				end = d
			}
		}

		qty, err := quantityAt(row, idx.quantity)
		if err != nil {
			return Metrics{}, parseErr("table", line, err.Error(), nil)
		}
		revenue, err := revenueAt(row, idx, qty)
		if err != nil {
			return Metrics{}, parseErr("table", line, err.Error(), nil)
		}
		if qty > math.MaxInt64-m.TotalItemsSold {
			return Metrics{}, parseErr("table", line, "total quantity overflows", nil)
		}
		m.TotalItemsSold += qty
		m.TotalSales += revenue
		if math.IsInf(m.TotalSales, 0) {
			return Metrics{}, parseErr("table", line, "total sales overflows", nil)
		}

		if product := cell(row, idx.product); product != "" {
			quantities[product] += qty
			revenues[product] += revenue
		}
	}
	if start.IsZero() {
		return Metrics{}, parseErr("table", 0, "no dated rows", nil)
	}

	m.Period = model.Period{Start: start, End: end}
	m.TotalSales = roundCents(m.TotalSales)
	if math.IsInf(m.TotalSales, 0) || math.IsNaN(m.TotalSales) {
		return Metrics{}, parseErr("table", 0, "total sales overflows", nil)
	}
	m.BestSeller = leader(quantities)
	m.TopRevenueProduct = leader(revenues)
	return m, nil
}

// Params merges the metrics into constructor parameters for loc.
func (m Metrics) Params(fileName string, loc model.Location) model.ReportParams {
	return model.ReportParams{
		FileName:          fileName,
		Columns:           m.Columns,
		RowCount:          m.RowCount,
		Period:            m.Period,
		TotalItemsSold:    m.TotalItemsSold,
		TotalSales:        m.TotalSales,
		BestSeller:        m.BestSeller,
		TopRevenueProduct: m.TopRevenueProduct,
		Bucket:            loc.Bucket,
		Key:               loc.Key,
	}
}

func locateColumns(columns []string) columnIndex {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = normalizeHeader(c)
	}
	find := func(aliases []string) int {
		for _, alias := range aliases {
			for i, c := range normalized {
				if c == alias {
					return i
				}
			}
		}
		return -1
	}
	return columnIndex{
		date:     find(dateAliases),
		product:  find(productAliases),
		quantity: find(quantityAliases),
		revenue:  find(revenueAliases),
		price:    find(priceAliases),
	}
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(s)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matches %q", s)
}

func quantityAt(row []string, i int) (int64, error) {
	raw := cell(row, i)
	if raw == "" {
		return 0, nil
	}
	f, err := parseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("unreadable quantity %q", raw)
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity %q must be a whole non-negative number", raw)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("quantity %q is out of range", raw)
	}
	return int64(f), nil
}

func revenueAt(row []string, idx columnIndex, qty int64) (float64, error) {
	if raw := cell(row, idx.revenue); raw != "" {
		v, err := parseNumber(raw)
		if err != nil {
			return 0, fmt.Errorf("unreadable amount %q", raw)
		}
		if v < 0 {
			return 0, fmt.Errorf("amount %q is negative", raw)
		}
		return v, nil
	}
	raw := cell(row, idx.price)
	if raw == "" {
		return 0, nil
	}
	price, err := parseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("unreadable price %q", raw)
	}
	if price < 0 {
		return 0, fmt.Errorf("price %q is negative", raw)
	}
	revenue := price * float64(qty)
	if math.IsInf(revenue, 0) {
		return 0, fmt.Errorf("revenue of %q at price %q is out of range", cell(row, idx.quantity), raw)
	}
	return revenue, nil
}

// parseNumber accepts currency symbols, thousands separators and decimal
// commas: "1.234,50", "1,234.50" and "$12" all parse.
func parseNumber(s string) (float64, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', '\u00a0', '\'':
			return -1
		}
		return r
	}, s)
	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0 && strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

// leader returns the key with the strictly highest positive value, or nil on
// a tie or an empty map.
func leader[V int64 | float64](totals map[string]V) *string {
	var (
		best  string
		top   V
		found bool
		tied  bool
	)
	for name, v := range totals {
		switch {
		case !found || v > top:
			best, top, found, tied = name, v, true, false
		case v == top:
			tied = true
		}
	}
	if !found || tied || top <= 0 {
		return nil
	}
	return &best
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
