package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PeriodDocument is the wire form of a Period. Unknown bounds encode as null.
type PeriodDocument struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Document is the stable serialized shape of a SalesReport consumed by the
// store and downstream systems. errorMessage is only present on failures.
type Document struct {
	ID                string         `json:"id"`
	FileName          string         `json:"fileName"`
	Type              string         `json:"type"`
	Columns           []string       `json:"columns"`
	RowCount          int            `json:"rowCount"`
	Period            PeriodDocument `json:"period"`
	TotalItemsSold    int64          `json:"totalItemsSold"`
	TotalSales        float64        `json:"totalSales"`
	BestSeller        *string        `json:"bestSeller"`
	TopRevenueProduct *string        `json:"topRevenueProduct"`
	Bucket            string         `json:"bucket"`
	Key               string         `json:"key"`
	Status            ReportStatus   `json:"status"`
	ProcessedAt       time.Time      `json:"processedAt"`
	ErrorMessage      string         `json:"errorMessage,omitempty"`
}

// Summary is the reduced view used by listings and search.
type Summary struct {
	ID             string         `json:"id"`
	FileName       string         `json:"fileName"`
	TotalSales     float64        `json:"totalSales"`
	TotalItemsSold int64          `json:"totalItemsSold"`
	BestSeller     *string        `json:"bestSeller"`
	Period         PeriodDocument `json:"period"`
	Status         ReportStatus   `json:"status"`
}

// Serialize returns a detached plain representation of every field.
func (r *SalesReport) Serialize() Document {
	columns := make([]string, len(r.columns))
	copy(columns, r.columns)
	return Document{
		ID:                r.id,
		FileName:          r.fileName,
		Type:              ReportType,
		Columns:           columns,
		RowCount:          r.rowCount,
		Period:            r.period.document(),
		TotalItemsSold:    r.totalItemsSold,
		TotalSales:        r.totalSales,
		BestSeller:        cloneString(r.bestSeller),
		TopRevenueProduct: cloneString(r.topRevenueProduct),
		Bucket:            r.location.Bucket,
		Key:               r.location.Key,
		Status:            r.status,
		ProcessedAt:       r.processedAt,
		ErrorMessage:      r.errorMessage,
	}
}

// Summary has no side effects.
func (r *SalesReport) Summary() Summary {
	return Summary{
		ID:             r.id,
		FileName:       r.fileName,
		TotalSales:     r.totalSales,
		TotalItemsSold: r.totalItemsSold,
		BestSeller:     cloneString(r.bestSeller),
		Period:         r.period.document(),
		Status:         r.status,
	}
}

// FromDocument rebuilds a report from its serialized form, keeping the stored
// id, status and timestamps. The same rules as the constructors apply.
func FromDocument(doc Document) (*SalesReport, error) {
	if _, err := uuid.Parse(doc.ID); err != nil {
		return nil, invalid(reportEntity, "id", "must be a uuid")
	}
	if doc.Type != "" && doc.Type != ReportType {
		return nil, invalid(reportEntity, "type", "unexpected report type "+doc.Type)
	}
	if doc.ProcessedAt.IsZero() {
		return nil, invalid(reportEntity, "processedAt", "is required")
	}
	params := ReportParams{
		FileName:          doc.FileName,
		Columns:           doc.Columns,
		RowCount:          doc.RowCount,
		Period:            doc.Period.period(),
		TotalItemsSold:    doc.TotalItemsSold,
		TotalSales:        doc.TotalSales,
		BestSeller:        doc.BestSeller,
		TopRevenueProduct: doc.TopRevenueProduct,
		Bucket:            doc.Bucket,
		Key:               doc.Key,
		ProcessedAt:       doc.ProcessedAt,
	}
	switch doc.Status {
	case StatusSuccess:
		if err := validateReport(params, true); err != nil {
			return nil, err
		}
		if doc.ErrorMessage != "" {
			return nil, invalid(reportEntity, "errorMessage", "must be absent on a successful report")
		}
	case StatusFailed:
		if err := validateReport(params, false); err != nil {
			return nil, err
		}
		if strings.TrimSpace(doc.ErrorMessage) == "" {
			return nil, invalid(reportEntity, "errorMessage", "must not be empty")
		}
	default:
		return nil, invalid(reportEntity, "status", "unknown status "+string(doc.Status))
	}
	return buildReport(doc.ID, params, doc.Status, doc.ErrorMessage), nil
}

func (p Period) document() PeriodDocument {
	var doc PeriodDocument
	if !p.Start.IsZero() {
		start := p.Start
		doc.Start = &start
	}
	if !p.End.IsZero() {
		end := p.End
		doc.End = &end
	}
	return doc
}

func (d PeriodDocument) period() Period {
	var p Period
	if d.Start != nil {
		p.Start = *d.Start
	}
	if d.End != nil {
		p.End = *d.End
	}
	return p
}
