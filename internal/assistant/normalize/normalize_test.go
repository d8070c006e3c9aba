package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "lowercases",
			input:    "How Many Orders",
			expected: "how many orders",
		},
		{
			name:     "strips diacritics",
			input:    "Où est ma commande numéro",
			expected: "ou est ma commande numero",
		},
		{
			name:     "replaces punctuation with spaces",
			input:    "how many active products do I have?",
			expected: "how many active products do i have",
		},
		{
			name:     "collapses whitespace runs",
			input:    "  what   is\tthe status\n of my order  ",
			expected: "what is the status of my order",
		},
		{
			name:     "hash prefixed reference keeps digits",
			input:    "status of order #1042?",
			expected: "status of order 1042",
		},
		{
			name:     "hyphenated words split",
			input:    "low-stock items",
			expected: "low stock items",
		},
		{
			name:     "only punctuation",
			input:    "?!...,",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"How Many Orders?",
		"Où est ma commande numéro #1042!",
		"  lots   of\t\twhitespace  ",
		"already normalized text",
		"ÄÖÜ äöü ß",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", in)
	}
}
