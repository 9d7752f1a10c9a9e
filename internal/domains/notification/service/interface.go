package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// Dispatcher is the single public ingestion API for all notification sources.
type Dispatcher interface {
	Create(ctx context.Context, params model.CreateParams) (*model.Notification, error)

	NotifyLowStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error)
	NotifyCriticalStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error)
	NotifyOutOfStock(ctx context.Context, userID uuid.UUID, product model.Product) (*model.Notification, error)
	NotifyExpiringSoon(ctx context.Context, userID uuid.UUID, product model.Product, daysLeft int) (*model.Notification, error)
	NotifySaleCompleted(ctx context.Context, userID uuid.UUID, saleID string, amount float64, items int) (*model.Notification, error)
	NotifySystemError(ctx context.Context, userID uuid.UUID, msg, code string) (*model.Notification, error)
	NotifyStockAdded(ctx context.Context, userID uuid.UUID, product model.Product, quantity int) (*model.Notification, error)
	NotifyBatchReceived(ctx context.Context, userID uuid.UUID, batchRef string, itemCount int) (*model.Notification, error)
	NotifyStockAdjustment(ctx context.Context, userID uuid.UUID, product model.Product, delta int, reason string) (*model.Notification, error)

	ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	DismissAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// EmailRouter converts notification(s) into outbound email.
type EmailRouter interface {
	SendForNotification(ctx context.Context, n *model.Notification) error
	SendAggregatedSummary(ctx context.Context, recipient model.User, scan ScanFindings) error
	// SendDigest composes the DailyDigestJob's once-a-day summary with its
	// own digest body, following the same send shape as SendAggregatedSummary
	// (Ready() check, timeout, failures logged only).
	SendDigest(ctx context.Context, recipient model.User, notifications []model.Notification) error
}

// Scanner performs time-driven inspection of the product catalog.
type Scanner interface {
	RunHealthChecks(ctx context.Context, force bool) model.ScanResult
}

// RealtimeBus publishes per-user notification change events.
type RealtimeBus interface {
	Subscribe(userID uuid.UUID, handler func(Event)) (unsubscribe func())
	Publish(event Event)
}

// Event is the Realtime Bus's wire payload.
type Event struct {
	EventType string               `json:"event"`
	Row       model.Notification   `json:"row"`
	Previous  *model.Notification  `json:"previous,omitempty"`
}

const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)
