package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ================================================

type notificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, type, title, message, priority, category, metadata,
	is_read, read_at, dismissed_at, email_sent, email_sent_at,
	created_at, updated_at
`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Priority, &n.Category, &n.Metadata,
		&n.IsRead, &n.ReadAt, &n.DismissedAt, &n.EmailSent, &n.EmailSentAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Insert is the atomic write boundary used by the Dispatcher. The dedup
// decision itself is made and recorded by CooldownRepository before this is
// ever called, so Insert need only be a single-statement write.
func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	query := `
		INSERT INTO notifications (
			id, user_id, type, title, message, priority, category, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + notificationColumns

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Priority, n.Category, n.Metadata)
	out, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}
	return n, nil
}

// ListForUser excludes dismissed rows and orders by created_at descending,
// matching the Store's listForUser contract.
func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ListFilter) (model.ListResult, error) {
	where := "WHERE user_id = $1 AND dismissed_at IS NULL"
	args := []interface{}{userID}
	argN := 1

	if filter.UnreadOnly {
		where += " AND is_read = FALSE"
	}
	if filter.Category != "" {
		argN++
		where += fmt.Sprintf(" AND category = $%d", argN)
		args = append(args, filter.Category)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM notifications " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return model.ListResult{}, fmt.Errorf("count notifications: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM notifications %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, where, argN+1, argN+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return model.ListResult{}, fmt.Errorf("list for user: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return model.ListResult{}, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return model.ListResult{}, fmt.Errorf("rows error: %w", err)
	}

	return model.ListResult{
		Rows:       out,
		TotalCount: total,
		HasMore:    total > int64(offset+limit),
	}, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE AND dismissed_at IS NULL`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns

	row := r.db.QueryRow(ctx, query, id, userID)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND is_read = FALSE AND dismissed_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *notificationRepository) Dismiss(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET dismissed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND dismissed_at IS NULL
		RETURNING ` + notificationColumns

	row := r.db.QueryRow(ctx, query, id, userID)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("dismiss: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) DismissAll(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET dismissed_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND dismissed_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("dismiss all: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *notificationRepository) SetEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET email_sent = TRUE, email_sent_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("set email sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListSince feeds the daily digest job: every row for userID created at or
// after since, across all categories, regardless of read/dismissed state.
func (r *notificationRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list since: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// CleanupOlderThan purges rows whose dismissed_at predates the cutoff, per
// the Lifecycle note: notifications are never hard-deleted through the API,
// only by this maintenance job.
func (r *notificationRepository) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	query := `DELETE FROM notifications WHERE dismissed_at IS NOT NULL AND dismissed_at < $1`

	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup older than: %w", err)
	}
	return int(result.RowsAffected()), nil
}
