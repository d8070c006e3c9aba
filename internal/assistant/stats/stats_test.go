package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

type stubStore struct {
	counts models.BusinessCounts
	err    error
	calls  int
}

func (s *stubStore) GetBusinessCounts(_ context.Context, _ string, _ models.Role) (models.BusinessCounts, error) {
	s.calls++
	return s.counts, s.err
}

func newResolver(t *testing.T, store DataStore) *Resolver {
	return NewResolver(store, logger.NewTestLogger(t))
}

func TestResolve_ActiveProducts(t *testing.T) {
	store := &stubStore{counts: models.BusinessCounts{ProductsTotal: 15, ProductsActive: 12}}
	r := newResolver(t, store)

	answer, ok := r.Resolve(context.Background(), models.RoleSupplier, "supplier-7",
		"How many active products do I have?")

	require.True(t, ok)
	assert.Equal(t, "You have 12 active products (15 in total).", answer)
	assert.Equal(t, 1, store.calls, "one aggregate round trip only")
}

func TestResolve_OpenOrders(t *testing.T) {
	store := &stubStore{counts: models.BusinessCounts{OrdersTotal: 9, OrdersOpen: 4}}
	r := newResolver(t, store)

	answer, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"how many open orders do i have")

	require.True(t, ok)
	assert.Equal(t, "You have 4 open orders (9 in total).", answer)
}

func TestResolve_CompletedOrders(t *testing.T) {
	store := &stubStore{counts: models.BusinessCounts{OrdersTotal: 9, OrdersCompleted: 5}}
	r := newResolver(t, store)

	answer, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"what is the total of fulfilled orders")

	require.True(t, ok)
	assert.Equal(t, "You have 5 completed orders (9 in total).", answer)
}

func TestResolve_LowStockQualifierWinsOverPlainProducts(t *testing.T) {
	store := &stubStore{counts: models.BusinessCounts{ProductsTotal: 20, ProductsLow: 6}}
	r := newResolver(t, store)

	answer, ok := r.Resolve(context.Background(), models.RoleSupplier, "supplier-7",
		"how many products are running low")

	require.True(t, ok)
	assert.Contains(t, answer, "6 of your 20 products")
}

func TestResolve_PartnerLinksPerRole(t *testing.T) {
	store := &stubStore{counts: models.BusinessCounts{PartnerLinks: 8}}
	r := newResolver(t, store)

	supplier, ok := r.Resolve(context.Background(), models.RoleSupplier, "supplier-7",
		"how many stores do i supply")
	require.True(t, ok)
	assert.Equal(t, "You supply 8 connected stores.", supplier)

	owner, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"how many suppliers am i connected to")
	require.True(t, ok)
	assert.Equal(t, "You are connected to 8 active suppliers.", owner)
}

func TestResolve_NoCountingCueDeclines(t *testing.T) {
	store := &stubStore{}
	r := newResolver(t, store)

	_, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"what is the status of my last order")

	assert.False(t, ok)
	assert.Equal(t, 0, store.calls, "no cue must mean no query")
}

func TestResolve_CueWithoutDomainDeclines(t *testing.T) {
	store := &stubStore{}
	r := newResolver(t, store)

	_, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"how many days until friday")

	assert.False(t, ok)
	assert.Equal(t, 0, store.calls)
}

func TestResolve_StoreErrorDeclines(t *testing.T) {
	store := &stubStore{err: assert.AnError}
	r := newResolver(t, store)

	_, ok := r.Resolve(context.Background(), models.RoleOwner, "owner-1",
		"how many orders do i have")

	assert.False(t, ok)
}
