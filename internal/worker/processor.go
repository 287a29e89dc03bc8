package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/pipeline"
	"github.com/dharsanguruparan/SalesDrop/internal/queue"
)

// Runner is the pipeline entry point the worker drives.
type Runner interface {
	Run(ctx context.Context, file *model.FileDescriptor) (pipeline.Outcome, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner Runner
	logger *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(runner Runner, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{runner: runner, logger: logger}
}

// Handler registers the extract job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExtractReportTask, p.HandleExtract)
	return mux
}

// HandleExtract runs one attempt. Transient read failures are returned as is
// so asynq retries them; every other failure skips the retry queue because a
// second attempt would end the same way.
func (p *Processor) HandleExtract(ctx context.Context, task *asynq.Task) error {
	file, err := queue.ParseExtractTask(task)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	loc := file.Location()
	log := p.logger.With("file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key)

	out, err := p.runner.Run(ctx, file)
	if err != nil {
		log.Error("extract failed", "error", err)
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	if out.Cause == nil {
		return nil
	}
	if filereader.Retryable(out.Cause) {
		log.Warn("transient read failure, will retry", "report_id", out.Report.ID(), "error", out.Cause)
		return out.Cause
	}
	log.Info("report stored as failed", "report_id", out.Report.ID(), "stage", out.Stage)
	return nil
}
