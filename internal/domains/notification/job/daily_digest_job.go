package job

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
	"github.com/KurisuuChan/medcore/pkg/logger"
)

// ================================================
// DAILY DIGEST JOB HANDLER
// ================================================
// New component: daily_email_enabled/daily_email_time_hhmm carried no
// described consumer in the distilled notification core. This job is that
// consumer, registered on the worker's cron schedule every 30 minutes; it
// sends only in the half-hour window holding the configured time-of-day
// (see inConfiguredWindow), through the Email Router's SendDigest.

const TaskDailyDigest = "notification:daily_digest"

type DailyDigestHandler struct {
	notifications repository.NotificationRepository
	users         service.UserSource
	settings      service.SettingsSource
	email         service.EmailRouter
}

func NewDailyDigestHandler(notifications repository.NotificationRepository, users service.UserSource, settings service.SettingsSource, email service.EmailRouter) *DailyDigestHandler {
	return &DailyDigestHandler{notifications: notifications, users: users, settings: settings, email: email}
}

func (h *DailyDigestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	cfg, err := h.settings.Get(ctx)
	if err != nil {
		logger.Error("daily digest job: settings source unavailable", err)
		return nil
	}
	if !cfg.DailyEmailEnabled {
		return nil
	}
	if !inConfiguredWindow(cfg.DailyEmailTimeHHMM, time.Now()) {
		return nil
	}

	since := time.Now().Add(-24 * time.Hour)
	sent := 0

	for _, recipient := range cfg.DailyEmailRecipients {
		user, err := h.users.ByEmail(ctx, recipient)
		if err != nil || user == nil {
			continue
		}

		rows, err := h.notifications.ListSince(ctx, user.ID, since)
		if err != nil {
			logger.Error("daily digest job: list since failed", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		if err := h.email.SendDigest(ctx, *user, rows); err != nil {
			logger.Error("daily digest job: send failed", err)
			continue
		}
		sent++
	}

	logger.Info("Completed DailyDigest job", map[string]interface{}{
		"recipients_sent": sent,
	})
	return nil
}

func NewDailyDigestTask() *asynq.Task {
	return asynq.NewTask(TaskDailyDigest, nil)
}

// inConfiguredWindow reports whether now falls in the same half-hour bucket
// as hhmm ("07:00"), so the 30-minute cron tick fires the digest exactly
// once for the day instead of every tick.
func inConfiguredWindow(hhmm string, now time.Time) bool {
	configured, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	return now.Hour() == configured.Hour() && (now.Minute()/30) == (configured.Minute()/30)
}
