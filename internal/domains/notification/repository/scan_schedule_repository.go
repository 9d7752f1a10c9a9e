package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
)

// ================================================
// SCAN SCHEDULE REPOSITORY IMPLEMENTATION
// ================================================
// One row per check_type, updated on every scan attempt. Follows the same
// upsert idiom as cooldownRepository.

type scanScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScanScheduleRepository(db *pgxpool.Pool) ScanScheduleRepository {
	return &scanScheduleRepository{db: db}
}

func (r *scanScheduleRepository) Get(ctx context.Context, checkType string) (*model.ScanSchedule, error) {
	query := `
		SELECT check_type, last_run_at, last_notifications_created, last_error
		FROM notification_scan_schedule
		WHERE check_type = $1
	`

	var s model.ScanSchedule
	err := r.db.QueryRow(ctx, query, checkType).Scan(&s.CheckType, &s.LastRunAt, &s.LastNotificationsCreated, &s.LastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.ScanSchedule{CheckType: checkType}, nil
		}
		return nil, fmt.Errorf("get scan schedule: %w", err)
	}
	return &s, nil
}

// ShouldRun implements Scanner.shouldRun: true iff last_run_at is null or
// now - last_run_at >= interval.
func (r *scanScheduleRepository) ShouldRun(ctx context.Context, checkType string, interval time.Duration) (bool, error) {
	s, err := r.Get(ctx, checkType)
	if err != nil {
		return false, err
	}
	if s.LastRunAt == nil {
		return true, nil
	}
	return time.Since(*s.LastRunAt) >= interval, nil
}

func (r *scanScheduleRepository) RecordRun(ctx context.Context, checkType string, count int, runErr error) error {
	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}

	query := `
		INSERT INTO notification_scan_schedule (check_type, last_run_at, last_notifications_created, last_error)
		VALUES ($1, NOW(), $2, $3)
		ON CONFLICT (check_type) DO UPDATE SET
			last_run_at = NOW(),
			last_notifications_created = EXCLUDED.last_notifications_created,
			last_error = EXCLUDED.last_error
	`

	if _, err := r.db.Exec(ctx, query, checkType, count, errMsg); err != nil {
		return fmt.Errorf("record scan run: %w", err)
	}
	return nil
}
