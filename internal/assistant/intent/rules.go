// internal/assistant/intent/rules.go
package intent

import (
	"context"
	"fmt"
	"regexp"
)

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func (m *Matcher) buildOwnerRules() []rule {
	return []rule{
		{
			name:     "owner-order-by-reference",
			patterns: []*regexp.Regexp{orderWithDigitsPattern},
			handle:   m.orderByReferenceHandler(),
		},
		{
			name:     "owner-last-order",
			patterns: patterns(`\b(last|latest|most recent|previous)\b.*\border\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				order, err := m.store.GetLastOrder(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				if order == nil {
					return "You have not placed any orders yet.", nil
				}
				return fmt.Sprintf("Your most recent order %s (placed %s, supplier %s) is currently %s.",
					order.Reference, order.PlacedAt.Format("2 Jan 2006"), order.Partner, order.Status), nil
			},
		},
		{
			name:     "owner-open-orders",
			patterns: patterns(`\b(open|pending|outstanding)\b.*\borders\b`, `\borders\b.*\bin progress\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				counts, err := m.store.GetBusinessCounts(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				if counts.OrdersOpen == 0 {
					return "You have no open orders right now.", nil
				}
				return fmt.Sprintf("You have %d open orders out of %d in total.",
					counts.OrdersOpen, counts.OrdersTotal), nil
			},
		},
		{
			name:     "owner-supplier-links",
			patterns: patterns(`\b(my|connected|active)\b.*\bsuppliers\b`, `\bpartner(s| links)?\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				counts, err := m.store.GetBusinessCounts(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("You are connected to %d active suppliers.", counts.PartnerLinks), nil
			},
		},
		{
			name:     "owner-howto-place-order",
			patterns: patterns(`\bhow (do i|to|can i)\b.*\b(place|create|make)\b.*\border\b`),
			handle: advisory("To place an order: 1) Open the supplier's catalog from your Suppliers page. " +
				"2) Add the products you need to the order basket. " +
				"3) Review quantities and delivery date on the basket page. " +
				"4) Press Send order. The supplier confirms it and the order appears under Orders as open."),
		},
		{
			name:     "owner-howto-find-supplier",
			patterns: patterns(`\bhow (do i|to|can i)\b.*\b(find|add|connect)\b.*\bsupplier\b`),
			handle: advisory("To connect a new supplier: 1) Open the Suppliers page and press Find suppliers. " +
				"2) Search by product category or name. " +
				"3) Open the supplier profile and press Request partnership. " +
				"Once the supplier accepts, their catalog becomes visible to your store."),
		},
	}
}

func (m *Matcher) buildSupplierRules() []rule {
	return []rule{
		{
			name:     "supplier-order-by-reference",
			patterns: []*regexp.Regexp{orderWithDigitsPattern},
			handle:   m.orderByReferenceHandler(),
		},
		{
			name:     "supplier-last-order",
			patterns: patterns(`\b(last|latest|most recent|previous)\b.*\border\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				order, err := m.store.GetLastOrder(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				if order == nil {
					return "You have not received any orders yet.", nil
				}
				return fmt.Sprintf("The most recent order you received is %s from %s, currently %s.",
					order.Reference, order.Partner, order.Status), nil
			},
		},
		{
			name:     "supplier-low-stock",
			patterns: patterns(`\blow stock\b`, `\brunning low\b`, `\b(almost |nearly )?out of stock\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				counts, err := m.store.GetBusinessCounts(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				if counts.ProductsLow == 0 {
					return "None of your products are below their minimum stock level.", nil
				}
				return fmt.Sprintf("%d of your %d products are at or below their minimum stock level. Check the Inventory page for the full list.",
					counts.ProductsLow, counts.ProductsTotal), nil
			},
		},
		{
			name:     "supplier-partner-links",
			patterns: patterns(`\b(my|connected|active)\b.*\b(stores|shops|partners)\b`, `\bpartner(s| links)?\b`),
			handle: func(ctx context.Context, req Request) (string, error) {
				counts, err := m.store.GetBusinessCounts(ctx, req.ActorID, req.Role)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("You supply %d connected stores.", counts.PartnerLinks), nil
			},
		},
		{
			name:     "supplier-howto-update-stock",
			patterns: patterns(`\bhow (do i|to|can i)\b.*\b(update|change|adjust)\b.*\bstock\b`),
			handle: advisory("To update stock levels: 1) Open the Inventory page. " +
				"2) Find the product and press Edit stock. " +
				"3) Enter the new quantity and minimum stock level. " +
				"4) Press Save. Connected stores see the new availability immediately."),
		},
		{
			name:     "supplier-howto-add-product",
			patterns: patterns(`\bhow (do i|to|can i)\b.*\b(add|list|create)\b.*\bproduct\b`),
			handle: advisory("To add a product: 1) Open the Catalog page and press Add product. " +
				"2) Fill in the name, SKU, price and unit. " +
				"3) Set the stock and minimum stock level. " +
				"4) Press Publish to make it visible to your partner stores."),
		},
	}
}

// orderByReferenceHandler is shared by both roles; only the store lookup is
// scoped differently.
func (m *Matcher) orderByReferenceHandler() handlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		ref, ok := ExtractReference(req.Text)
		if !ok {
			return clarifyReference, nil
		}
		order, err := m.store.GetOrderByReference(ctx, req.ActorID, ref)
		if err != nil {
			return "", err
		}
		if order == nil {
			return fmt.Sprintf("I could not find order %s in your account.", ref), nil
		}
		return fmt.Sprintf("Order %s (%s, total %.2f) is currently %s.",
			order.Reference, order.Partner, order.Total, order.Status), nil
	}
}

// advisory wraps a fixed instruction answer; these rules never touch the
// data store.
func advisory(answer string) handlerFunc {
	return func(_ context.Context, _ Request) (string, error) {
		return answer, nil
	}
}
