package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, logger.NewNoOpLogger()), mock
}

func countsRows(total, active, low, ordersTotal, ordersOpen, ordersCompleted, links int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"products_total", "products_active", "products_low",
		"orders_total", "orders_open", "orders_completed", "partner_links",
	}).AddRow(total, active, low, ordersTotal, ordersOpen, ordersCompleted, links)
}

func TestGetBusinessCounts_Supplier(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(supplierCountsQuery)).
		WithArgs("supplier-7").
		WillReturnRows(countsRows(15, 12, 3, 40, 5, 30, 8))

	counts, err := s.GetBusinessCounts(context.Background(), "supplier-7", models.RoleSupplier)

	require.NoError(t, err)
	assert.Equal(t, 12, counts.ProductsActive)
	assert.Equal(t, 15, counts.ProductsTotal)
	assert.Equal(t, 8, counts.PartnerLinks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessCounts_OwnerUsesOwnerScope(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(ownerCountsQuery)).
		WithArgs("owner-1").
		WillReturnRows(countsRows(0, 0, 0, 2, 1, 1, 3))

	counts, err := s.GetBusinessCounts(context.Background(), "owner-1", models.RoleOwner)

	require.NoError(t, err)
	assert.Equal(t, 2, counts.OrdersTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessCounts_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(ownerCountsQuery)).
		WithArgs("owner-1").
		WillReturnError(assert.AnError)

	_, err := s.GetBusinessCounts(context.Background(), "owner-1", models.RoleOwner)
	assert.Error(t, err)
}

func TestGetLastOrder_NoOrdersReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(ownerLastOrderQuery)).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"reference", "status", "counterparty", "total", "placed_at"}))

	order, err := s.GetLastOrder(context.Background(), "owner-1", models.RoleOwner)

	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestGetLastOrder_ReturnsNewest(t *testing.T) {
	s, mock := newMockStore(t)

	placedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(supplierLastOrderQuery)).
		WithArgs("supplier-7").
		WillReturnRows(sqlmock.NewRows([]string{"reference", "status", "counterparty", "total", "placed_at"}).
			AddRow("1042", "open", "Corner Store", 249.90, placedAt))

	order, err := s.GetLastOrder(context.Background(), "supplier-7", models.RoleSupplier)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "1042", order.Reference)
	assert.Equal(t, "open", order.Status)
}

func TestGetOrderByReference_NotFoundReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(orderByReferenceQuery)).
		WithArgs("owner-1", "9999").
		WillReturnRows(sqlmock.NewRows([]string{"reference", "status", "counterparty", "total", "placed_at"}))

	order, err := s.GetOrderByReference(context.Background(), "owner-1", "9999")

	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestGetOrders_ScansAllRows(t *testing.T) {
	s, mock := newMockStore(t)

	placedAt := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(ownerOrdersQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"reference", "status", "counterparty", "total", "placed_at"}).
			AddRow("2001", "open", "FreshGoods", 120.00, placedAt).
			AddRow("1998", "open", "PackCo", 89.50, placedAt.Add(-time.Hour)))

	orders, err := s.GetOrders(context.Background(), "owner-1", models.RoleOwner, []string{"open", "pending"}, 5)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "2001", orders[0].Reference)
}

func TestGetLowStockProducts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(lowStockQuery)).
		WithArgs("supplier-7", 5).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "stock", "min_stock"}).
			AddRow("Oat Milk 1L", "OM-1L", 2, 10).
			AddRow("Rye Bread", "RB-500", 4, 8))

	products, err := s.GetLowStockProducts(context.Background(), "supplier-7", 5)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Oat Milk 1L", products[0].Name)
	assert.Equal(t, 2, products[0].Stock)
}
