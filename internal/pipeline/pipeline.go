// Package pipeline runs one extraction attempt end to end: read the source
// object, parse it, summarize it, build the report, archive it and save it.
// Content and storage problems end in a saved failed report; only validation
// and persistence failures are returned as errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/SalesDrop/internal/extract"
	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
	"github.com/dharsanguruparan/SalesDrop/internal/metrics"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
)

// Failure stages recorded on metrics and in Outcome.Stage.
const (
	StageRead    = "read"
	StageParse   = "parse"
	StageArchive = "archive"
)

// Archiver copies a finished report somewhere durable besides the store.
type Archiver interface {
	ArchiveReport(ctx context.Context, report *model.SalesReport) (model.Location, error)
}

// Outcome describes one attempt. Cause is set when the report failed and
// Stage names the step that failed.
type Outcome struct {
	File   *model.FileDescriptor
	Report *model.SalesReport
	Cause  error
	Stage  string
}

// Failed reports whether the attempt produced a failed report.
func (o Outcome) Failed() bool { return o.Report != nil && o.Report.Failed() }

// Pipeline holds the collaborators of an attempt. It keeps no per-attempt
// state, so one Pipeline serves concurrent runs.
type Pipeline struct {
	source         filereader.Source
	store          repository.ReportStore
	archiver       Archiver
	largeThreshold int
	logger         *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithArchiver archives every valid report before it is saved.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) { p.archiver = a }
}

// WithLargeThreshold sets the row count above which a report is large.
func WithLargeThreshold(rows int) Option {
	return func(p *Pipeline) { p.largeThreshold = rows }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a Pipeline reading from source and saving into store.
func New(source filereader.Source, store repository.ReportStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:         source,
		store:          store,
		largeThreshold: model.DefaultLargeThreshold,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one attempt for file. A read or parse failure yields a saved
// failed report and a nil error; so does an archive failure, through
// MarkFailed. Validation and store errors are returned.
func (p *Pipeline) Run(ctx context.Context, file *model.FileDescriptor) (Outcome, error) {
	loc := file.Location()
	log := p.logger.With("file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key)
	out := Outcome{File: file}

	table, stage, err := p.load(ctx, file)
	if err == nil {
		var m extract.Metrics
		if m, err = extract.Summarize(table); err == nil {
			return p.finish(ctx, log, out, m.Params(file.Name(), loc))
		}
		stage = StageParse
	}

	params := model.ReportParams{
		FileName: file.Name(),
		Columns:  table.Columns,
		RowCount: len(table.Rows),
		Bucket:   loc.Bucket,
		Key:      loc.Key,
	}
	report, verr := model.NewFailedReport(params, err.Error())
	if verr != nil {
		return out, fmt.Errorf("build failed report for %s: %w", loc, verr)
	}
	out.Report, out.Cause, out.Stage = report, err, stage
	if err := p.store.Save(ctx, report); err != nil {
		return out, fmt.Errorf("save report %s: %w", report.ID(), err)
	}
	log.Warn("extraction failed", "report_id", report.ID(), "stage", stage, "error", err)
	metrics.ExtractionsTotal.WithLabelValues(string(model.StatusFailed), failureKind(stage, err)).Inc()
	return out, nil
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, out Outcome, params model.ReportParams) (Outcome, error) {
	report, err := model.NewSalesReport(params)
	if err != nil {
		return out, fmt.Errorf("build report for %s/%s: %w", params.Bucket, params.Key, err)
	}
	out.Report = report
	log = log.With("report_id", report.ID())

	if p.archiver != nil {
		if _, err := p.archiver.ArchiveReport(ctx, report); err != nil {
			if merr := report.MarkFailed("archive report: " + err.Error()); merr != nil {
				return out, merr
			}
			out.Cause, out.Stage = err, StageArchive
		}
	}
	if err := p.store.Save(ctx, report); err != nil {
		return out, fmt.Errorf("save report %s: %w", report.ID(), err)
	}

	if out.Cause != nil {
		log.Warn("report archive failed", "error", out.Cause)
		metrics.ExtractionsTotal.WithLabelValues(string(model.StatusFailed), StageArchive).Inc()
		return out, nil
	}
	metrics.ExtractionsTotal.WithLabelValues(string(model.StatusSuccess), "").Inc()
	if report.IsLarge(p.largeThreshold) {
		metrics.LargeReportsTotal.Inc()
		log.Info("large report processed", "rows", report.RowCount(), "threshold", p.largeThreshold)
	}
	log.Info("report processed", "rows", report.RowCount(), "total_sales", report.TotalSales())
	return out, nil
}

// load reads and parses the file according to its format. Unknown formats
// are read as delimited text.
func (p *Pipeline) load(ctx context.Context, file *model.FileDescriptor) (extract.Table, string, error) {
	loc := file.Location()
	var (
		table extract.Table
		err   error
	)
	switch file.Format() {
	case model.FormatXLSX:
		data, rerr := p.source.ReadObject(ctx, loc.Bucket, loc.Key)
		if rerr != nil {
			return extract.Table{}, StageRead, rerr
		}
		table, err = extract.ParseXLSX(data)
	case model.FormatPDF:
		data, rerr := p.source.ReadObject(ctx, loc.Bucket, loc.Key)
		if rerr != nil {
			return extract.Table{}, StageRead, rerr
		}
		table, err = extract.ParsePDF(data)
	default:
		text, rerr := p.source.ReadFile(ctx, loc.Bucket, loc.Key)
		if rerr != nil {
			return extract.Table{}, StageRead, rerr
		}
		table, err = extract.ParseCSV(text)
	}
	if err != nil {
		return extract.Table{}, StageParse, err
	}
	return table, "", nil
}

func failureKind(stage string, err error) string {
	if kind := filereader.KindOf(err); kind != "" {
		return string(kind)
	}
	return stage
}

// Fatal reports whether a failed attempt means the rest of a batch would fail
// the same way: the bucket is missing or not readable.
func Fatal(cause error) bool {
	switch filereader.KindOf(cause) {
	case filereader.KindBucketNotFound, filereader.KindAccessDenied:
		return true
	}
	return false
}

// ErrBatchAborted wraps the cause that stopped a batch.
var ErrBatchAborted = errors.New("batch aborted")

// RunBatch runs attempts concurrently, at most concurrency at a time. Missing
// or forbidden buckets and hard errors stop the batch from starting further
// files; attempts already running finish against ctx so their reports are
// still saved. Files that were not started keep a zero Outcome. Missing
// objects and read failures only fail their own attempt.
func (p *Pipeline) RunBatch(ctx context.Context, files []*model.FileDescriptor, concurrency int) ([]Outcome, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	outcomes := make([]Outcome, len(files))
	aborted, abort := context.WithCancel(ctx)
	defer abort()

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, file := range files {
		if aborted.Err() != nil {
			break
		}
		g.Go(func() error {
			if aborted.Err() != nil {
				return nil
			}
			out, err := p.Run(ctx, file)
			outcomes[i] = out
			if err == nil && Fatal(out.Cause) {
				err = fmt.Errorf("%w: %w", ErrBatchAborted, out.Cause)
			}
			if err != nil {
				abort()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}
