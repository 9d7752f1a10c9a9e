package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// NotificationRepository is the Store's persistence boundary for
// notification rows. All writes return the post-write row.
type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (*model.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	DismissAll(ctx context.Context, userID uuid.UUID) (int, error)
	SetEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
	CleanupOlderThan(ctx context.Context, days int) (int, error)
	// ListSince returns every row created at or after since, for the daily
	// digest job's per-recipient summary.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Notification, error)
}

// CooldownRepository is the Deduper's persistence boundary.
type CooldownRepository interface {
	// ShouldSendAndRecord atomically decides whether the (user_id, key) pair
	// is outside its cooldown window and, if so, upserts last_sent_at=now in
	// the same statement. Returns true iff the caller may proceed to send.
	ShouldSendAndRecord(ctx context.Context, userID uuid.UUID, key string, cooldownHours int) (bool, error)
	CleanupOlderThan(ctx context.Context, before time.Time) (int, error)
}

// ScanScheduleRepository is the Scanner's durable-debounce persistence boundary.
type ScanScheduleRepository interface {
	Get(ctx context.Context, checkType string) (*model.ScanSchedule, error)
	ShouldRun(ctx context.Context, checkType string, interval time.Duration) (bool, error)
	RecordRun(ctx context.Context, checkType string, count int, runErr error) error
}
