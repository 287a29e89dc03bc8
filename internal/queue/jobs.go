package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

const (
	// ExtractReportTask is scheduled each time a sales file is uploaded.
	ExtractReportTask = "report:extract"

	maxRetry = 5
)

// Enqueuer schedules extraction for a stored file. The asynq client and the
// in-process pool both satisfy it.
type Enqueuer interface {
	EnqueueExtract(ctx context.Context, file *model.FileDescriptor) error
}

// Client enqueues extraction tasks on Redis through asynq.
type Client struct {
	client *asynq.Client
}

var _ Enqueuer = (*Client)(nil)

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// NewExtractTask encodes the file descriptor as the task payload.
func NewExtractTask(file *model.FileDescriptor) (*asynq.Task, error) {
	data, err := json.Marshal(file.Serialize())
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ExtractReportTask, data, asynq.MaxRetry(maxRetry)), nil
}

// ParseExtractTask decodes and revalidates the payload of an extract task.
func ParseExtractTask(task *asynq.Task) (*model.FileDescriptor, error) {
	var doc model.FileDocument
	if err := json.Unmarshal(task.Payload(), &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	file, err := model.FileFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return file, nil
}

// EnqueueExtract enqueues an extraction job for file.
func (c *Client) EnqueueExtract(ctx context.Context, file *model.FileDescriptor) error {
	task, err := NewExtractTask(file)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue extract task: %w", err)
	}
	return nil
}
