// internal/assistant/intent/refs.go
package intent

import "regexp"

// An order reference is a run of 3+ digits. Normalization has already
// stripped any leading '#'.
var referencePattern = regexp.MustCompile(`\b(\d{3,})\b`)

// A shorter digit run next to "order" means the caller tried to give a
// reference but it cannot be a valid one.
var orderWithDigitsPattern = regexp.MustCompile(`\borders?\b[^0-9]{0,40}\d`)

const clarifyReference = "I could not read that order number. Please share the full reference with at least three digits, for example order 1042."

// ExtractReference pulls the first order reference out of normalized text.
func ExtractReference(text string) (string, bool) {
	match := referencePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
