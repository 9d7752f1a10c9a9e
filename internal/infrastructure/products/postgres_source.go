// Package products implements the notification core's ProductSource port
// against the pharmacy catalog.
package products

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KurisuuChan/medcore/internal/domains/notification/model"
	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// ================================================
// PRODUCT SOURCE (REFERENCE ADAPTER)
// ================================================
// Grounded on inventory_repo.go's pgxpool query shape, narrowed to the
// single read-only query the Scanner needs: active products with their
// stock level, reorder level and expiry date.

type postgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) service.ProductSource {
	return &postgresSource{pool: pool}
}

func (s *postgresSource) ListActive(ctx context.Context, filter service.ProductFilter) ([]model.Product, error) {
	where := "WHERE is_active = TRUE"
	args := []interface{}{}
	argN := 0

	if filter.OutOfStockOnly {
		where += " AND stock_in_pieces <= 0"
	} else if filter.InStockOnly {
		where += " AND stock_in_pieces > 0"
	}
	if filter.ExpiringWithin > 0 {
		argN++
		where += fmt.Sprintf(" AND expiry_date IS NOT NULL AND expiry_date <= NOW() + ($%d || ' days')::interval", argN)
		args = append(args, filter.ExpiringWithin)
	}

	query := `
		SELECT id, brand_name, generic_name, stock_in_pieces, reorder_level, expiry_date, is_active
		FROM products
	` + where

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.BrandName, &p.GenericName, &p.StockInPieces, &p.ReorderLevel, &p.ExpiryDate, &p.IsActive)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
