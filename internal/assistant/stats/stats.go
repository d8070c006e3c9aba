// Package stats answers "how many / count" style questions straight from
// aggregate queries. It runs before any network call; its entire cost is
// one local round trip.
package stats

import (
	"context"
	"fmt"
	"strings"

	"shop-assistant/internal/assistant/resolve"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

// DataStore is the single aggregate query the resolver needs.
type DataStore interface {
	GetBusinessCounts(ctx context.Context, actorID string, role models.Role) (models.BusinessCounts, error)
}

type domain int

const (
	domainNone domain = iota
	domainOrders
	domainProducts
	domainPartners
)

type qualifier int

const (
	qualifierNone qualifier = iota
	qualifierOpen
	qualifierCompleted
	qualifierActive
	qualifierLowStock
)

var countingCues = []string{"how many", "count", "total", "number of"}

var domainKeywords = map[domain][]string{
	domainOrders:   {"order", "orders", "purchase", "purchases"},
	domainProducts: {"product", "products", "item", "items", "sku", "skus", "stock"},
	domainPartners: {"supplier", "suppliers", "partner", "partners", "vendor", "vendors", "store", "stores", "shop", "shops"},
}

var qualifierKeywords = map[qualifier][]string{
	qualifierLowStock:  {"low stock", "low-stock", "running low"},
	qualifierOpen:      {"open", "pending", "outstanding", "in progress"},
	qualifierCompleted: {"completed", "fulfilled", "delivered", "finished"},
	qualifierActive:    {"active"},
}

// qualifierOrder fixes precedence when several qualifier keywords appear.
var qualifierOrder = []qualifier{qualifierLowStock, qualifierOpen, qualifierCompleted, qualifierActive}

// Resolver classifies counting questions and answers them from one
// aggregate query.
type Resolver struct {
	store  DataStore
	logger logger.Logger
}

func NewResolver(store DataStore, log logger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "stats"}),
	}
}

// Resolve answers a counting question, or reports false when the raw text
// has no counting cue or no recognizable domain. The gate runs on the raw
// lowercased text so phrasing like "Total: open orders?" still triggers it.
func (r *Resolver) Resolve(ctx context.Context, role models.Role, actorID, rawText string) (string, bool) {
	text := strings.ToLower(rawText)

	if !hasCountingCue(text) {
		return "", false
	}

	dom := classifyDomain(text)
	if dom == domainNone {
		return "", false
	}
	qual := classifyQualifier(text)

	return resolve.Safe(r.logger, "numeric-metric", func() (string, error) {
		counts, err := r.store.GetBusinessCounts(ctx, actorID, role)
		if err != nil {
			return "", err
		}
		return r.renderAnswer(role, dom, qual, counts), nil
	})
}

func hasCountingCue(text string) bool {
	for _, cue := range countingCues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

func classifyDomain(text string) domain {
	// Orders win over partners so "orders from my suppliers" counts orders.
	for _, d := range []domain{domainOrders, domainProducts, domainPartners} {
		for _, kw := range domainKeywords[d] {
			if containsWord(text, kw) {
				return d
			}
		}
	}
	return domainNone
}

func classifyQualifier(text string) qualifier {
	for _, q := range qualifierOrder {
		for _, kw := range qualifierKeywords[q] {
			if strings.Contains(text, kw) {
				return q
			}
		}
	}
	return qualifierNone
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func (r *Resolver) renderAnswer(role models.Role, dom domain, qual qualifier, counts models.BusinessCounts) string {
	switch dom {
	case domainOrders:
		switch qual {
		case qualifierOpen:
			return fmt.Sprintf("You have %d open orders (%d in total).", counts.OrdersOpen, counts.OrdersTotal)
		case qualifierCompleted:
			return fmt.Sprintf("You have %d completed orders (%d in total).", counts.OrdersCompleted, counts.OrdersTotal)
		default:
			return fmt.Sprintf("You have %d orders in total: %d open and %d completed.",
				counts.OrdersTotal, counts.OrdersOpen, counts.OrdersCompleted)
		}

	case domainProducts:
		switch qual {
		case qualifierActive:
			return fmt.Sprintf("You have %d active products (%d in total).", counts.ProductsActive, counts.ProductsTotal)
		case qualifierLowStock:
			return fmt.Sprintf("%d of your %d products are at or below their minimum stock level.",
				counts.ProductsLow, counts.ProductsTotal)
		default:
			return fmt.Sprintf("You have %d products, of which %d are active.",
				counts.ProductsTotal, counts.ProductsActive)
		}

	case domainPartners:
		if role == models.RoleSupplier {
			return fmt.Sprintf("You supply %d connected stores.", counts.PartnerLinks)
		}
		return fmt.Sprintf("You are connected to %d active suppliers.", counts.PartnerLinks)
	}

	return ""
}
