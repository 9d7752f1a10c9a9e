package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// ProductFilter selects which slice of the catalog a sub-check needs.
type ProductFilter struct {
	InStockOnly    bool
	OutOfStockOnly bool
	ExpiringWithin int // days; 0 means "not filtering by expiry"
}

// ProductSource is the Scanner's read-only view of the product catalog.
type ProductSource interface {
	ListActive(ctx context.Context, filter ProductFilter) ([]model.Product, error)
}

// UserSource resolves the scan's target recipient and email addresses.
type UserSource interface {
	PrimaryNotificationUser(ctx context.Context) (*model.User, error)
	Email(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// ByEmail resolves one of the DailyDigestJob's configured recipient
	// addresses back to a user, so the digest can reuse ListSince(userID).
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

// SettingsSource provides the read-only NotificationSettings value; changes
// become visible on the Scanner's next invocation, no live reload required.
type SettingsSource interface {
	Get(ctx context.Context) (model.Settings, error)
}
