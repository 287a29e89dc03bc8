package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

func TestExtractTaskRoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	file, err := model.NewFileDescriptor(model.FileParams{
		Name:        "feb.xlsx",
		Size:        2048,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Bucket:      "sales-raw",
		Key:         "uploads/feb.xlsx",
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	require.NoError(t, err)
	require.NoError(t, file.Annotate("uploader", "api"))

	task, err := NewExtractTask(file)
	require.NoError(t, err)
	assert.Equal(t, ExtractReportTask, task.Type())

	got, err := ParseExtractTask(task)
	require.NoError(t, err)
	assert.Equal(t, file.Serialize(), got.Serialize())
	assert.Equal(t, model.FormatXLSX, got.Format())
}

func TestParseExtractTask_Rejects(t *testing.T) {
	_, err := ParseExtractTask(asynq.NewTask(ExtractReportTask, []byte("{")))
	assert.ErrorContains(t, err, "decode payload")

	_, err = ParseExtractTask(asynq.NewTask(ExtractReportTask, []byte(`{"id":"x","filename":""}`)))
	assert.ErrorContains(t, err, "invalid payload")
}
