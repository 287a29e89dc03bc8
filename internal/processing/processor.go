// Package processing runs extraction attempts on an in-process worker pool.
// It backs the single-binary mode where no Redis is available and satisfies
// the same Enqueuer contract as the asynq client.
package processing

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/queue"
	"github.com/dharsanguruparan/SalesDrop/internal/worker"
)

// ErrQueueFull is returned when the buffer has no room for another job.
var ErrQueueFull = errors.New("processing queue full")

// ErrStopped is returned by EnqueueExtract after Stop.
var ErrStopped = errors.New("processing pool stopped")

// Processor consumes queued files and runs the pipeline for each.
type Processor struct {
	runner  worker.Runner
	queue   chan *model.FileDescriptor
	workers int
	logger  *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ queue.Enqueuer = (*Processor)(nil)

// New builds a Processor with queue capacity tied to worker count.
func New(runner worker.Runner, workers int, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		runner:  runner,
		queue:   make(chan *model.FileDescriptor, workers*4),
		workers: workers,
		logger:  logger,
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled or Stop
// has drained the queue.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// EnqueueExtract queues file without blocking.
func (p *Processor) EnqueueExtract(_ context.Context, file *model.FileDescriptor) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- file:
		return nil
	default:
		loc := file.Location()
		p.logger.Warn("processor queue full, rejecting job", "file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key)
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets workers finish what is queued and waits.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case file, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(ctx, file)
		}
	}
}

func (p *Processor) process(ctx context.Context, file *model.FileDescriptor) {
	out, err := p.runner.Run(ctx, file)
	if err != nil {
		loc := file.Location()
		p.logger.Error("extract failed", "file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key, "error", err)
		return
	}
	if out.Cause != nil {
		p.logger.Info("report stored as failed", "report_id", out.Report.ID(), "stage", out.Stage)
	}
}
