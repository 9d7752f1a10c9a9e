package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/config"
	"github.com/KurisuuChan/medcore/internal/domains/notification/job"
	"github.com/KurisuuChan/medcore/pkg/logger"
)

// ================================================
// SCHEDULER
// ================================================
// Cron registration for the notification core's three periodic jobs: a
// catalog health-check scan, ledger/notification cleanup, and the daily
// digest send.

const queueNotification = "notification"

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisAddress string, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler, jobConfig: jobConfig}
}

func (s *Scheduler) RegisterNotificationJobs() error {
	if err := s.registerRunHealthChecksJob(); err != nil {
		return err
	}
	if err := s.registerCleanupJob(); err != nil {
		return err
	}
	if err := s.registerDailyDigestJob(); err != nil {
		return err
	}
	return nil
}

// JOB 1: health check scan, every 15 minutes — the Scanner's own debounce
// decides whether a given tick does any real work.
func (s *Scheduler) registerRunHealthChecksJob() error {
	_, err := s.scheduler.Register(
		"*/15 * * * *",
		job.NewRunHealthChecksTask(),
		asynq.Queue(queueNotification),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register RunHealthChecks job", err)
		return err
	}
	logger.Info("Registered RunHealthChecks: every 15 minutes", nil)
	return nil
}

// JOB 2: cleanup stale notifications and cooldown ledger rows, daily at 3 AM.
func (s *Scheduler) registerCleanupJob() error {
	task, err := job.NewCleanupTask(s.jobConfig.CleanupRetentionDays)
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		"0 3 * * *",
		task,
		asynq.Queue(queueNotification),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register Cleanup job", err)
		return err
	}
	logger.Info("Registered Cleanup: daily at 3 AM", nil)
	return nil
}

// JOB 3: daily digest, registered every 30 minutes — the handler itself
// checks daily_email_enabled and the configured time-of-day, so it sends
// at most once a day.
func (s *Scheduler) registerDailyDigestJob() error {
	_, err := s.scheduler.Register(
		"*/30 * * * *",
		job.NewDailyDigestTask(),
		asynq.Queue(queueNotification),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register DailyDigest job", err)
		return err
	}
	logger.Info("Registered DailyDigest: every 30 minutes (self-gated on configured time)", nil)
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
