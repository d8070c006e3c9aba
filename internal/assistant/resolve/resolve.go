// Package resolve holds the shared failure-isolation combinator for
// deterministic resolvers. A handler that errors or panics is treated as
// "this resolver declines" so one misbehaving rule never blocks the rest
// of the chain.
package resolve

import (
	"fmt"

	"shop-assistant/internal/common/logger"
)

// Safe runs fn and converts any error or panic into a decline.
func Safe(log logger.Logger, name string, fn func() (string, error)) (answer string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("resolver panicked, treating as decline", map[string]interface{}{
				"resolver": name,
				"panic":    fmt.Sprintf("%v", r),
			})
			answer = ""
			ok = false
		}
	}()

	out, err := fn()
	if err != nil {
		log.Debug("resolver declined with error", map[string]interface{}{
			"resolver": name,
			"error":    err.Error(),
		})
		return "", false
	}
	if out == "" {
		return "", false
	}
	return out, true
}
