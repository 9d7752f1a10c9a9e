// Package settings implements the notification core's SettingsSource port.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// ================================================
// SETTINGS SOURCE (REFERENCE ADAPTER)
// ================================================
// Single-row configuration table; read fresh on every Get() call so an
// admin changing a threshold takes effect on the Scanner's next run without
// a restart, matching the port's "no live reload required" contract (reads
// are already live, there's simply no push notification of a change).

type postgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) service.SettingsSource {
	return &postgresSource{pool: pool}
}

func (s *postgresSource) Get(ctx context.Context) (model.Settings, error) {
	query := `
		SELECT low_stock_check_interval_min, expiring_check_interval_min,
			out_of_stock_check_interval_min, email_alerts_enabled,
			daily_email_enabled, daily_email_time_hhmm, daily_email_recipients
		FROM notification_settings
		WHERE id = 1
	`

	var cfg model.Settings
	var recipients string
	err := s.pool.QueryRow(ctx, query).Scan(
		&cfg.LowStockCheckIntervalMin, &cfg.ExpiringCheckIntervalMin,
		&cfg.OutOfStockCheckIntervalMin, &cfg.EmailAlertsEnabled,
		&cfg.DailyEmailEnabled, &cfg.DailyEmailTimeHHMM, &recipients,
	)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("load notification settings: %w", err)
	}

	if recipients != "" {
		cfg.DailyEmailRecipients = strings.Split(recipients, ",")
	}
	return cfg, nil
}
