// internal/assistant/retrieval/rerank.go
package retrieval

import (
	"sort"
	"strings"

	"shop-assistant/internal/models"
)

// Re-ranking weights. A verb-dense, reasonably short passage should beat a
// longer, diffuse one even when the remote similarity score preferred the
// latter.
const (
	verbWeight  = 2.0
	labelWeight = 1.0

	// One penalty point per lengthPenaltyStep characters beyond the
	// threshold.
	lengthPenaltyThreshold = 600
	lengthPenaltyStep      = 300
	lengthPenaltyWeight    = 1.0
)

var imperativeVerbs = []string{
	"click", "select", "open", "press", "choose", "enter", "add",
	"upload", "set", "save", "go", "navigate", "fill", "pick", "confirm",
}

var uiLabels = []string{
	"dashboard", "catalog", "inventory", "orders", "settings",
	"button", "menu", "tab", "page", "form", "basket", "profile",
}

// ProceduralScore rates how instruction-like a passage is.
func ProceduralScore(s models.RetrievedSnippet) float64 {
	text := strings.ToLower(s.Text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var score float64
	for _, w := range words {
		for _, verb := range imperativeVerbs {
			if w == verb {
				score += verbWeight
				break
			}
		}
		for _, label := range uiLabels {
			if w == label {
				score += labelWeight
				break
			}
		}
	}

	if over := len(s.Text) - lengthPenaltyThreshold; over > 0 {
		score -= lengthPenaltyWeight * float64(over/lengthPenaltyStep+1)
	}

	return score
}

// ReRankProcedural sorts snippets by ProceduralScore, highest first. The
// sort is stable so remote similarity order breaks ties.
func ReRankProcedural(snippets []models.RetrievedSnippet) []models.RetrievedSnippet {
	out := make([]models.RetrievedSnippet, len(snippets))
	copy(out, snippets)
	sort.SliceStable(out, func(i, j int) bool {
		return ProceduralScore(out[i]) > ProceduralScore(out[j])
	})
	return out
}
