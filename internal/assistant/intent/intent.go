// Package intent answers questions that map onto deterministic, canned
// responses. Rules are checked in fixed priority order per role; the first
// non-empty handler answer wins.
package intent

import (
	"context"
	"regexp"

	"shop-assistant/internal/assistant/resolve"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/models"
)

// DataStore is the slice of the aggregate store the rule handlers consult.
type DataStore interface {
	GetBusinessCounts(ctx context.Context, actorID string, role models.Role) (models.BusinessCounts, error)
	GetLastOrder(ctx context.Context, actorID string, role models.Role) (*models.OrderSummary, error)
	GetOrderByReference(ctx context.Context, actorID, reference string) (*models.OrderSummary, error)
}

// Request carries one normalized question through the rule handlers.
type Request struct {
	ActorID string
	Role    models.Role
	Text    string
}

type handlerFunc func(ctx context.Context, req Request) (string, error)

type rule struct {
	name     string
	patterns []*regexp.Regexp
	handle   handlerFunc
}

func (r rule) matches(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Matcher holds the two ordered rule lists. Rule order is part of the
// observable contract: reordering changes which answer wins.
type Matcher struct {
	store         DataStore
	logger        logger.Logger
	ownerRules    []rule
	supplierRules []rule
}

func NewMatcher(store DataStore, log logger.Logger) *Matcher {
	m := &Matcher{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "intent"}),
	}
	m.ownerRules = m.buildOwnerRules()
	m.supplierRules = m.buildSupplierRules()
	return m
}

// Match returns the first rule answer for the normalized question, or
// false when every rule declines. A handler that errors or panics counts
// as a decline, never as a failure of the whole match.
func (m *Matcher) Match(ctx context.Context, role models.Role, actorID, normalizedText string) (string, bool) {
	rules := m.ownerRules
	if role == models.RoleSupplier {
		rules = m.supplierRules
	}

	req := Request{ActorID: actorID, Role: role, Text: normalizedText}

	for _, r := range rules {
		if !r.matches(normalizedText) {
			continue
		}
		answer, ok := resolve.Safe(m.logger, r.name, func() (string, error) {
			return r.handle(ctx, req)
		})
		if ok {
			m.logger.Debug("intent rule matched", map[string]interface{}{
				"rule": r.name,
				"role": string(role),
			})
			return answer, true
		}
	}

	return "", false
}
