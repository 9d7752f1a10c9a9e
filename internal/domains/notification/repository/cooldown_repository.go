package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ================================================
// COOLDOWN LEDGER REPOSITORY IMPLEMENTATION
// ================================================
// A single ON CONFLICT upsert decides and records in one statement, with a
// conditional predicate on the cooldown window, so two concurrent callers
// racing the same (user_id, key) can't both win.

type cooldownRepository struct {
	db *pgxpool.Pool
}

func NewCooldownRepository(db *pgxpool.Pool) CooldownRepository {
	return &cooldownRepository{db: db}
}

// ShouldSendAndRecord is the Deduper's atomic decide+upsert boundary. The
// WHERE clause on the DO UPDATE branch only lets the write go through when
// the existing row is outside its cooldown window; RETURNING tells the
// caller whether this statement was the one that "won".
func (r *cooldownRepository) ShouldSendAndRecord(ctx context.Context, userID uuid.UUID, key string, cooldownHours int) (bool, error) {
	query := `
		INSERT INTO notification_cooldowns (user_id, notification_key, last_sent_at, cooldown_hours)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (user_id, notification_key) DO UPDATE SET
			last_sent_at = NOW(),
			cooldown_hours = EXCLUDED.cooldown_hours
		WHERE notification_cooldowns.last_sent_at <= NOW() - (notification_cooldowns.cooldown_hours || ' hours')::INTERVAL
		RETURNING TRUE
	`

	var won bool
	err := r.db.QueryRow(ctx, query, userID, key, cooldownHours).Scan(&won)
	if err != nil {
		// No rows returned means the conflict predicate rejected the write:
		// the existing row is still inside its cooldown window.
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("cooldown check: %w", err)
	}
	return won, nil
}

// CleanupOlderThan purges ledger rows stale enough that they can no longer
// affect any future decision (last_sent_at older than max cooldown × K,
// decided by the caller via `before`).
func (r *cooldownRepository) CleanupOlderThan(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM notification_cooldowns WHERE last_sent_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup cooldowns: %w", err)
	}
	return int(result.RowsAffected()), nil
}
