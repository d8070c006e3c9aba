// Package snapshot assembles the per-actor business state block used as
// generation grounding and served on the snapshot endpoint.
package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop-assistant/internal/cache"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/models"
)

const (
	listLimit   = 3
	placeholder = "unavailable"
)

var openStatuses = []string{"open", "pending"}
var completedStatuses = []string{"completed", "fulfilled"}

type DataStore interface {
	GetBusinessCounts(ctx context.Context, actorID string, role models.Role) (models.BusinessCounts, error)
	GetOrders(ctx context.Context, actorID string, role models.Role, statuses []string, limit int) ([]models.OrderSummary, error)
	GetLowStockProducts(ctx context.Context, actorID string, limit int) ([]models.ProductSummary, error)
}

// Builder renders bounded snapshots and caches them per actor. The TTL is
// short because the underlying state changes with every order, but the
// several aggregate queries are not free either.
type Builder struct {
	store  DataStore
	cache  *cache.Cache[*models.BusinessSnapshot]
	budget int
	logger logger.Logger
}

func NewBuilder(store DataStore, c *cache.Cache[*models.BusinessSnapshot], budget int, log logger.Logger) *Builder {
	return &Builder{
		store:  store,
		cache:  c,
		budget: budget,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot"}),
	}
}

// Build returns the current snapshot for an actor. Partial data renders as
// explicit placeholders; only a failure of the headline counts query is an
// error.
func (b *Builder) Build(ctx context.Context, role models.Role, actorID string) (*models.BusinessSnapshot, error) {
	key := actorID + "|" + string(role)
	if snap, ok := b.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("context").Inc()
		return snap, nil
	}
	metrics.CacheMisses.WithLabelValues("context").Inc()

	counts, err := b.store.GetBusinessCounts(ctx, actorID, role)
	if err != nil {
		return nil, err
	}

	snap := &models.BusinessSnapshot{
		ActorID:     actorID,
		Role:        role,
		Counts:      counts,
		GeneratedAt: time.Now().UTC(),
	}

	urgentOK := true
	snap.UrgentOrders, err = b.store.GetOrders(ctx, actorID, role, openStatuses, listLimit)
	if err != nil {
		urgentOK = false
		b.logger.Warn("open orders unavailable for snapshot", map[string]interface{}{"error": err.Error()})
	}

	recentOK := true
	snap.RecentOrders, err = b.store.GetOrders(ctx, actorID, role, completedStatuses, listLimit)
	if err != nil {
		recentOK = false
		b.logger.Warn("completed orders unavailable for snapshot", map[string]interface{}{"error": err.Error()})
	}

	lowOK := true
	snap.LowStock, err = b.store.GetLowStockProducts(ctx, actorID, listLimit)
	if err != nil {
		lowOK = false
		b.logger.Warn("low stock list unavailable for snapshot", map[string]interface{}{"error": err.Error()})
	}

	snap.Rendered = b.render(snap, urgentOK, recentOK, lowOK)
	b.cache.Put(key, snap)
	return snap, nil
}

func (b *Builder) render(snap *models.BusinessSnapshot, urgentOK, recentOK, lowOK bool) string {
	var sb strings.Builder

	roleLabel := "store owner"
	partnerLabel := "Connected suppliers"
	if snap.Role == models.RoleSupplier {
		roleLabel = "supplier"
		partnerLabel = "Connected stores"
	}

	fmt.Fprintf(&sb, "Business snapshot (%s):\n", roleLabel)
	fmt.Fprintf(&sb, "Products: %d total, %d active, %d low on stock.\n",
		snap.Counts.ProductsTotal, snap.Counts.ProductsActive, snap.Counts.ProductsLow)
	fmt.Fprintf(&sb, "Orders: %d total, %d open, %d completed.\n",
		snap.Counts.OrdersTotal, snap.Counts.OrdersOpen, snap.Counts.OrdersCompleted)
	fmt.Fprintf(&sb, "%s: %d.\n", partnerLabel, snap.Counts.PartnerLinks)

	sb.WriteString("Open orders needing attention:\n")
	writeOrderList(&sb, snap.UrgentOrders, urgentOK)

	sb.WriteString("Recently completed orders:\n")
	writeOrderList(&sb, snap.RecentOrders, recentOK)

	sb.WriteString("Products low on stock:\n")
	switch {
	case !lowOK:
		fmt.Fprintf(&sb, "- %s\n", placeholder)
	case len(snap.LowStock) == 0:
		sb.WriteString("- none\n")
	default:
		for _, p := range snap.LowStock {
			name := p.Name
			if name == "" {
				name = placeholder
			}
			fmt.Fprintf(&sb, "- %s (%s): %d left, minimum %d\n", name, p.SKU, p.Stock, p.MinStock)
		}
	}

	return truncateRunes(sb.String(), b.budget)
}

func writeOrderList(sb *strings.Builder, orders []models.OrderSummary, ok bool) {
	switch {
	case !ok:
		fmt.Fprintf(sb, "- %s\n", placeholder)
	case len(orders) == 0:
		sb.WriteString("- none\n")
	default:
		for _, o := range orders {
			partner := o.Partner
			if partner == "" {
				partner = placeholder
			}
			fmt.Fprintf(sb, "- order %s from %s, %s since %s (total %.2f)\n",
				o.Reference, partner, o.Status, o.PlacedAt.Format("2 Jan 2006"), o.Total)
		}
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
