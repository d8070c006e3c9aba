// Package store provides the read-only aggregate queries the assistant
// grounds deterministic answers on. All queries are scoped to a single
// actor; nothing here reaches across accounts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	cmnerrors "shop-assistant/internal/common/errors"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

const queryTimeout = 3 * time.Second

// Store runs aggregate queries against the storefront database.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// GetBusinessCounts fetches every headline counter for an actor in one
// round trip.
func (s *Store) GetBusinessCounts(ctx context.Context, actorID string, role models.Role) (models.BusinessCounts, error) {
	query := ownerCountsQuery
	if role == models.RoleSupplier {
		query = supplierCountsQuery
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var counts models.BusinessCounts
	err := s.db.QueryRowContext(ctx, query, actorID).Scan(
		&counts.ProductsTotal,
		&counts.ProductsActive,
		&counts.ProductsLow,
		&counts.OrdersTotal,
		&counts.OrdersOpen,
		&counts.OrdersCompleted,
		&counts.PartnerLinks,
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return models.BusinessCounts{}, cmnerrors.NewQueryTimeoutError("business_counts")
		}
		return models.BusinessCounts{}, cmnerrors.NewQueryExecutionFailedError("business_counts", err)
	}

	return counts, nil
}

// GetOrders returns the most recent orders for an actor restricted to the
// given statuses, newest first.
func (s *Store) GetOrders(ctx context.Context, actorID string, role models.Role, statuses []string, limit int) ([]models.OrderSummary, error) {
	query := ownerOrdersQuery
	if role == models.RoleSupplier {
		query = supplierOrdersQuery
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, actorID, pq.Array(statuses), limit)
	if err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("orders_by_status", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetLastOrder returns the most recent order regardless of status, or nil
// when the actor has no orders at all.
func (s *Store) GetLastOrder(ctx context.Context, actorID string, role models.Role) (*models.OrderSummary, error) {
	query := ownerLastOrderQuery
	if role == models.RoleSupplier {
		query = supplierLastOrderQuery
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o models.OrderSummary
	err := s.db.QueryRowContext(ctx, query, actorID).Scan(&o.Reference, &o.Status, &o.Partner, &o.Total, &o.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("last_order", err)
	}

	return &o, nil
}

// GetOrderByReference looks up a single order by its visible reference.
// Returns nil when no such order belongs to the actor.
func (s *Store) GetOrderByReference(ctx context.Context, actorID, reference string) (*models.OrderSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o models.OrderSummary
	err := s.db.QueryRowContext(ctx, orderByReferenceQuery, actorID, reference).Scan(&o.Reference, &o.Status, &o.Partner, &o.Total, &o.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("order_by_reference", err)
	}

	return &o, nil
}

// GetLowStockProducts lists products at or below their minimum stock level,
// lowest stock first.
func (s *Store) GetLowStockProducts(ctx context.Context, actorID string, limit int) ([]models.ProductSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, lowStockQuery, actorID, limit)
	if err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("low_stock_products", err)
	}
	defer rows.Close()

	var products []models.ProductSummary
	for rows.Next() {
		var p models.ProductSummary
		if err := rows.Scan(&p.Name, &p.SKU, &p.Stock, &p.MinStock); err != nil {
			return nil, cmnerrors.NewQueryExecutionFailedError("low_stock_products", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("low_stock_products", err)
	}

	return products, nil
}

func scanOrders(rows *sql.Rows) ([]models.OrderSummary, error) {
	var orders []models.OrderSummary
	for rows.Next() {
		var o models.OrderSummary
		if err := rows.Scan(&o.Reference, &o.Status, &o.Partner, &o.Total, &o.PlacedAt); err != nil {
			return nil, cmnerrors.NewQueryExecutionFailedError("orders_scan", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, cmnerrors.NewQueryExecutionFailedError("orders_scan", err)
	}
	return orders, nil
}
