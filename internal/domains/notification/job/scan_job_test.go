package job

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

type fakeScanner struct {
	result model.ScanResult
}

func (f *fakeScanner) RunHealthChecks(ctx context.Context, force bool) model.ScanResult {
	return f.result
}

func TestRunHealthChecksHandler_ProcessTaskCompletesOnSuccess(t *testing.T) {
	scanner := &fakeScanner{result: model.ScanResult{LowStockCount: 2, OutOfStockCount: 1, TotalNotifications: 3}}
	h := NewRunHealthChecksHandler(scanner)

	err := h.ProcessTask(context.Background(), NewRunHealthChecksTask())

	require.NoError(t, err)
}

func TestRunHealthChecksHandler_ProcessTaskHandlesSkip(t *testing.T) {
	scanner := &fakeScanner{result: model.ScanResult{Skipped: true, Reason: "local debounce"}}
	h := NewRunHealthChecksHandler(scanner)

	err := h.ProcessTask(context.Background(), NewRunHealthChecksTask())

	require.NoError(t, err)
}

func TestNewRunHealthChecksTask_UsesRegisteredTaskType(t *testing.T) {
	task := NewRunHealthChecksTask()
	assert.Equal(t, TaskRunHealthChecks, task.Type())
	assert.IsType(t, &asynq.Task{}, task)
}
