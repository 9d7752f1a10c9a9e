package model

import (
	"time"

	"github.com/google/uuid"
)

// ================================================
// DISPATCHER DTOs
// ================================================

// CreateParams is the Dispatcher's single public ingestion shape.
type CreateParams struct {
	UserID   uuid.UUID              `json:"user_id" validate:"required"`
	Title    string                 `json:"title" validate:"required,max=200"`
	Message  string                 `json:"message" validate:"required,max=1000"`
	Type     string                 `json:"type,omitempty"`
	Priority int                    `json:"priority,omitempty"`
	Category string                 `json:"category,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CooldownHours, if zero, is resolved to the category/severity default.
	CooldownHours int `json:"-"`
}

// ListFilter is the query shape for listForUser.
type ListFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
	Category   string
}

// ListResult matches Store.listForUser's return shape.
type ListResult struct {
	Rows       []Notification `json:"rows"`
	TotalCount int64          `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}

// NotificationResponse is the outward JSON shape for the Client API.
type NotificationResponse struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Priority    int                    `json:"priority"`
	Category    string                 `json:"category"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	IsRead      bool                   `json:"is_read"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	DismissedAt *time.Time             `json:"dismissed_at,omitempty"`
	EmailSent   bool                   `json:"email_sent"`
	EmailSentAt *time.Time             `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func ToResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Priority:    n.Priority,
		Category:    n.Category,
		Metadata:    map[string]interface{}(n.Metadata),
		IsRead:      n.IsRead,
		ReadAt:      n.ReadAt,
		DismissedAt: n.DismissedAt,
		EmailSent:   n.EmailSent,
		EmailSentAt: n.EmailSentAt,
		CreatedAt:   n.CreatedAt,
	}
}

// ListNotificationsRequest is the Client API's list() query shape.
type ListNotificationsRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
	UnreadOnly bool      `json:"unread_only"`
	Category   string    `json:"category,omitempty"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalCount    int64                  `json:"total_count"`
	HasMore       bool                   `json:"has_more"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// ScanResult is what runHealthChecks returns.
type ScanResult struct {
	Skipped              bool   `json:"skipped"`
	Reason               string `json:"reason,omitempty"`
	LowStockCount        int    `json:"low_stock_count"`
	OutOfStockCount      int    `json:"out_of_stock_count"`
	ExpiringCount        int    `json:"expiring_count"`
	TotalNotifications   int    `json:"total_notifications"`
	EmailAttempted       bool   `json:"email_attempted"`
	Error                string `json:"error,omitempty"`
}

// SubCheckResult is the shape each Scanner sub-check returns.
type SubCheckResult struct {
	Count    int
	Products []Product
	Err      error
}

// Product mirrors the ProductSource port's item shape.
type Product struct {
	ID           string
	BrandName    string
	GenericName  string
	StockInPieces int
	ReorderLevel int
	ExpiryDate   *time.Time
	IsActive     bool
}

// User mirrors the UserSource port's item shape.
type User struct {
	ID        uuid.UUID
	Email     string
	Role      string
	FirstName string
}
