// internal/assistant/generation/prompt.go
package generation

import (
	"fmt"
	"strings"

	"shop-assistant/internal/models"
)

// FallbackMessage is the user-safe answer returned when generation fails.
const FallbackMessage = "I could not generate a response right now. Please try rephrasing your question."

// stopTokens cut the model off before it fabricates a multi-turn dialogue.
var stopTokens = []string{"User:", "Question:"}

const ownerPreamble = "You are the assistant for a store owner on a B2B storefront platform. " +
	"Answer using only the business data and help passages below. " +
	"Be concise and factual. If the data does not contain the answer, say so plainly."

const supplierPreamble = "You are the assistant for a supplier on a B2B storefront platform. " +
	"Answer using only the business data and help passages below. " +
	"Be concise and factual. If the data does not contain the answer, say so plainly."

// BuildPrompt assembles preamble, grounding and the verbatim question. The
// grounding block is jointly truncated to budget characters: the snapshot
// goes in first, then snippets in relevance order, and whatever does not
// fit is dropped.
func BuildPrompt(role models.Role, question, snapshotText string, snippets []models.RetrievedSnippet, budget int) string {
	preamble := ownerPreamble
	if role == models.RoleSupplier {
		preamble = supplierPreamble
	}

	grounding := buildGrounding(snapshotText, snippets, budget)

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n")
	sb.WriteString(grounding)
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

func buildGrounding(snapshotText string, snippets []models.RetrievedSnippet, budget int) string {
	var sb strings.Builder
	remaining := budget

	sb.WriteString("Business data:\n")
	if snapshotText == "" {
		sb.WriteString("none\n")
	} else {
		snap := truncateRunes(snapshotText, remaining)
		sb.WriteString(snap)
		if !strings.HasSuffix(snap, "\n") {
			sb.WriteString("\n")
		}
		remaining -= len([]rune(snap))
	}

	sb.WriteString("\nHelp passages:\n")
	if len(snippets) == 0 || remaining <= 0 {
		sb.WriteString("none\n")
		return sb.String()
	}

	written := 0
	for i, s := range snippets {
		entry := fmt.Sprintf("%d. %s: %s\n", i+1, s.Title, s.Text)
		if len([]rune(entry)) > remaining {
			break
		}
		sb.WriteString(entry)
		remaining -= len([]rune(entry))
		written++
	}
	if written == 0 {
		sb.WriteString("none\n")
	}

	return sb.String()
}

// truncateAtSentence cuts text to at most max runes, preferring the last
// sentence boundary past the halfway point.
func truncateAtSentence(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}

	cut := runes[:max]
	for i := max - 1; i > max/2; i-- {
		switch cut[i] {
		case '.', '!', '?':
			return strings.TrimSpace(string(cut[:i+1]))
		}
	}
	return strings.TrimSpace(string(cut))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
