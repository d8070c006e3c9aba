// internal/models/knowledge.go
package models

// ContentType labels knowledge base passages.
type ContentType string

const (
	ContentHowTo   ContentType = "howto"
	ContentGeneral ContentType = "general"
)

// RetrievedSnippet is a knowledge base passage returned by similarity search.
type RetrievedSnippet struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Text        string      `json:"text"`
	ContentType ContentType `json:"contentType"`
	Audience    string      `json:"audience"`
	Score       float64     `json:"score"`
}
