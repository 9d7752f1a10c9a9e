// Package users implements the notification core's UserSource port.
package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// ================================================
// USER SOURCE (REFERENCE ADAPTER)
// ================================================
// Grounded on the user domain's postgres.go query shape, narrowed to the
// three lookups the notification core needs: resolve the primary scan
// recipient, resolve an email by user id, and resolve a user id by email
// for the daily digest's configured recipients.

const notificationRoles = `'admin', 'manager', 'pharmacist'`

type postgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) service.UserSource {
	return &postgresSource{pool: pool}
}

// PrimaryNotificationUser picks the oldest active account among
// admin/manager/pharmacist roles, a stable and deterministic choice across
// repeated scans.
func (s *postgresSource) PrimaryNotificationUser(ctx context.Context) (*model.User, error) {
	query := `
		SELECT id, email, role, full_name FROM users
		WHERE is_active = TRUE AND role IN (` + notificationRoles + `)
		ORDER BY created_at ASC
		LIMIT 1
	`
	row := s.pool.QueryRow(ctx, query)
	u, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("primary notification user: %w", err)
	}
	return u, nil
}

func (s *postgresSource) Email(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	query := `SELECT id, email, role, full_name FROM users WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("lookup user email: %w", err)
	}
	return u, nil
}

func (s *postgresSource) ByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, role, full_name FROM users WHERE email = $1`
	row := s.pool.QueryRow(ctx, query, email)
	u, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Role, &u.FirstName); err != nil {
		return nil, err
	}
	return &u, nil
}
