package main

import (
	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/domains/notification/job"
	"github.com/KurisuuChan/medcore/pkg/container"
)

// HandlerRegistry holds all asynq job handlers the worker process dispatches.
type HandlerRegistry struct {
	runHealthChecks *job.RunHealthChecksHandler
	cleanup         *job.CleanupHandler
	dailyDigest     *job.DailyDigestHandler
}

// initializeHandlers creates all job handlers with their dependencies.
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		runHealthChecks: job.NewRunHealthChecksHandler(c.Scanner),
		cleanup:         job.NewCleanupHandler(c.NotificationRepo, c.Deduper),
		dailyDigest:     job.NewDailyDigestHandler(c.NotificationRepo, c.UserSource, c.SettingsSource, c.EmailRouter),
	}
}

// RegisterHandlers registers all handlers with the mux.
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(job.TaskRunHealthChecks, h.runHealthChecks.ProcessTask)
	mux.HandleFunc(job.TaskCleanupNotifications, h.cleanup.ProcessTask)
	mux.HandleFunc(job.TaskDailyDigest, h.dailyDigest.ProcessTask)
}
