package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ================================================
// NOTIFICATION ENTITY
// ================================================

type Notification struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Priority      int        `json:"priority"`
	Category      string     `json:"category"`
	Metadata      JSONB      `json:"metadata,omitempty"`
	IsRead        bool       `json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	DismissedAt   *time.Time `json:"dismissed_at,omitempty"`
	EmailSent     bool       `json:"email_sent"`
	EmailSentAt   *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Presentation type — a hint for the UI, not a routing decision.
const (
	TypeError   = "error"
	TypeWarning = "warning"
	TypeSuccess = "success"
	TypeInfo    = "info"
)

// Category groups notifications by domain origin.
const (
	CategoryInventory = "inventory"
	CategoryExpiry    = "expiry"
	CategorySales     = "sales"
	CategorySystem    = "system"
	CategoryGeneral   = "general"
)

// Priority: lower number is more urgent.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
	PriorityInfo     = 5
)

func ValidPriority(p int) bool {
	return p >= PriorityCritical && p <= PriorityInfo
}

func ValidType(t string) bool {
	switch t {
	case TypeError, TypeWarning, TypeSuccess, TypeInfo:
		return true
	}
	return false
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryInventory, CategoryExpiry, CategorySales, CategorySystem, CategoryGeneral:
		return true
	}
	return false
}

// ================================================
// COOLDOWN LEDGER
// ================================================

// CooldownEntry is the dedup ledger row for a (user_id, notification_key) pair.
// Named to avoid stuttering against the dedupe package that owns it.
type CooldownEntry struct {
	UserID         uuid.UUID `json:"user_id"`
	NotificationKey string   `json:"notification_key"`
	LastSentAt     time.Time `json:"last_sent_at"`
	CooldownHours  int       `json:"cooldown_hours"`
	CreatedAt      time.Time `json:"created_at"`
}

// ================================================
// SCAN SCHEDULE
// ================================================

const (
	CheckTypeAll         = "all"
	CheckTypeLowStock    = "low_stock"
	CheckTypeExpiring    = "expiring"
	CheckTypeOutOfStock  = "out_of_stock"
)

type ScanSchedule struct {
	CheckType                 string     `json:"check_type"`
	LastRunAt                 *time.Time `json:"last_run_at,omitempty"`
	LastNotificationsCreated  int        `json:"last_notifications_created"`
	LastError                 *string    `json:"last_error,omitempty"`
}

// ================================================
// NOTIFICATION SETTINGS (read-only value to the core)
// ================================================

type Settings struct {
	LowStockCheckIntervalMin   int
	ExpiringCheckIntervalMin   int
	OutOfStockCheckIntervalMin int
	EmailAlertsEnabled         bool
	DailyEmailEnabled          bool
	DailyEmailTimeHHMM         string
	DailyEmailRecipients       []string
}

func DefaultSettings() Settings {
	return Settings{
		LowStockCheckIntervalMin:   60,
		ExpiringCheckIntervalMin:   360,
		OutOfStockCheckIntervalMin: 30,
		EmailAlertsEnabled:         true,
		DailyEmailEnabled:          false,
		DailyEmailTimeHHMM:         "07:00",
	}
}

// ================================================
// JSONB TYPE (PostgreSQL JSONB support)
// ================================================

type JSONB map[string]interface{}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrInvalidJSONB
	}

	result := make(JSONB)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*j = result
	return nil
}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// MarshalJSON implements json.Marshaler
func (j JSONB) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]interface{}(j))
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// Metadata key names the core reads/writes.
const (
	MetaProductID        = "productId"
	MetaActionURL        = "actionUrl"
	MetaNotificationKey  = "notification_key"
	MetaSuppressEmail    = "suppressEmail"
	MetaAggregated       = "aggregated"
	MetaSeverity         = "severity"
)

func (j JSONB) String(key string) (string, bool) {
	if j == nil {
		return "", false
	}
	v, ok := j[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (j JSONB) Bool(key string) bool {
	if j == nil {
		return false
	}
	v, ok := j[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
