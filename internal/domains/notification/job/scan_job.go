package job

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
	"github.com/KurisuuChan/medcore/pkg/logger"
)

// ================================================
// HEALTH CHECK SCAN JOB HANDLER
// ================================================
// A thin asynq ProcessTask wrapper around the Scanner's single entry point.
// The worker's cron schedule supplies the cadence; the Scanner's own
// debounce decides whether a given tick actually runs a scan.

const TaskRunHealthChecks = "notification:run_health_checks"

type RunHealthChecksHandler struct {
	scanner service.Scanner
}

func NewRunHealthChecksHandler(scanner service.Scanner) *RunHealthChecksHandler {
	return &RunHealthChecksHandler{scanner: scanner}
}

func (h *RunHealthChecksHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logger.Info("Starting RunHealthChecks job", nil)

	result := h.scanner.RunHealthChecks(ctx, false)
	if result.Skipped {
		logger.Info("RunHealthChecks job skipped", map[string]interface{}{"reason": result.Reason})
		return nil
	}

	logger.Info("Completed RunHealthChecks job", map[string]interface{}{
		"low_stock":     result.LowStockCount,
		"out_of_stock":  result.OutOfStockCount,
		"expiring":      result.ExpiringCount,
		"total_created": result.TotalNotifications,
	})
	return nil
}

func NewRunHealthChecksTask() *asynq.Task {
	return asynq.NewTask(TaskRunHealthChecks, nil)
}
