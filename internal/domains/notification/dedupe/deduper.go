// Package dedupe implements the cooldown-based duplicate suppression
// described by the notification core: deriving a stable key per alert and
// deciding, atomically, whether enough time has passed since the last send.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/repository"
)

// Default cooldowns applied by the Dispatcher when the caller omits one.
const (
	CooldownLowStock      = 24 * time.Hour
	CooldownCriticalStock = 6 * time.Hour
	CooldownOutOfStock    = 12 * time.Hour
	CooldownExpiry        = 24 * time.Hour
	CooldownSystemError   = 24 * time.Hour
)

type Deduper struct {
	repo repository.CooldownRepository
}

func New(repo repository.CooldownRepository) *Deduper {
	return &Deduper{repo: repo}
}

// Key derives the effective dedup key: the caller may supply
// metadata.notification_key directly, otherwise it is category+productId
// (or category+title when no product is associated).
func Key(category, title string, metadata map[string]interface{}) string {
	if metadata != nil {
		if k, ok := metadata[model.MetaNotificationKey].(string); ok && k != "" {
			return k
		}
		if pid, ok := metadata[model.MetaProductID].(string); ok && pid != "" {
			return category + ":" + pid
		}
	}
	return category + ":" + title
}

// ShouldSend decides whether the (user, key) pair is outside its cooldown
// window and, on true, atomically records the send so that no two
// concurrent callers with the same key both proceed.
//
// On storage failure this logs and returns true: correctness loss is
// preferred over dropping a critical alert (spec's failure policy for the
// Deduper).
func (d *Deduper) ShouldSend(ctx context.Context, userID uuid.UUID, key string, cooldown time.Duration) bool {
	hours := int(cooldown.Hours())
	if hours <= 0 {
		hours = 1
	}

	ok, err := d.repo.ShouldSendAndRecord(ctx, userID, key, hours)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Str("key", key).
			Msg("dedupe: cooldown check failed, proceeding as allowed")
		return true
	}
	return ok
}

// CleanupStale purges ledger rows that can no longer influence any future
// decision: last_sent_at older than the longest cooldown × factor.
func (d *Deduper) CleanupStale(ctx context.Context, longestCooldown time.Duration, factor int) (int, error) {
	before := time.Now().Add(-longestCooldown * time.Duration(factor))
	n, err := d.repo.CleanupOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale cooldowns: %w", err)
	}
	return n, nil
}
