package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/domains/notification/dedupe"
	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
	"github.com/KurisuuChan/medcore/pkg/logger"
)

// ================================================
// CLEANUP JOB HANDLER
// ================================================
// Payload carries an optional override for retention days, defaulting when
// absent or malformed. Cleanup runs across the two stores the notification
// core actually owns: dismissed notifications past their retention window, and
// cooldown ledger rows that can no longer affect a future dedup decision.

const TaskCleanupNotifications = "notification:cleanup"

const defaultRetentionDays = 30

type cleanupPayload struct {
	Days int `json:"days"`
}

type CleanupHandler struct {
	notifications repository.NotificationRepository
	deduper       *dedupe.Deduper
}

func NewCleanupHandler(notifications repository.NotificationRepository, deduper *dedupe.Deduper) *CleanupHandler {
	return &CleanupHandler{notifications: notifications, deduper: deduper}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload cleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("cleanup job: failed to unmarshal payload, using default retention", err)
		}
	}

	days := payload.Days
	if days <= 0 {
		days = defaultRetentionDays
	}

	logger.Info("Starting cleanup job", map[string]interface{}{"days": days})

	deletedNotifications, err := h.notifications.CleanupOlderThan(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup notifications: %w", err)
	}

	deletedCooldowns, err := h.deduper.CleanupStale(ctx, dedupe.CooldownExpiry, 4)
	if err != nil {
		return fmt.Errorf("cleanup cooldown ledger: %w", err)
	}

	logger.Info("Completed cleanup job", map[string]interface{}{
		"deleted_notifications": deletedNotifications,
		"deleted_cooldowns":     deletedCooldowns,
	})
	return nil
}

func NewCleanupTask(days int) (*asynq.Task, error) {
	payload, err := json.Marshal(cleanupPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCleanupNotifications, payload), nil
}
