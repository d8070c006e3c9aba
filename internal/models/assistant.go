// internal/models/assistant.go
package models

// Role identifies which side of the storefront the actor is on.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleSupplier Role = "supplier"
)

// ParseRole maps a raw role string onto a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleOwner:
		return RoleOwner, true
	case RoleSupplier:
		return RoleSupplier, true
	default:
		return "", false
	}
}

// SourceKind names the pipeline stage that produced an answer.
type SourceKind string

const (
	SourceCache               SourceKind = "cache"
	SourceIntent              SourceKind = "intent"
	SourceNumericMetric       SourceKind = "numeric-metric"
	SourceRetrievalGeneration SourceKind = "retrieval-generation"
	SourceError               SourceKind = "error"
)

// Question is the unit of work flowing through the pipeline. Context is
// optional caller-supplied grounding text, used alongside the snapshot.
type Question struct {
	RequestID string `json:"requestId"`
	ActorID   string `json:"actorId"`
	Role      Role   `json:"role"`
	Text      string `json:"question"`
	Context   string `json:"context,omitempty"`
}

// AnswerResult is the terminal output of every pipeline path.
type AnswerResult struct {
	RequestID    string     `json:"requestId"`
	Answer       string     `json:"answer"`
	Success      bool       `json:"success"`
	Source       SourceKind `json:"source"`
	Cached       bool       `json:"cached"`
	SnippetCount int        `json:"snippetCount"`
	ElapsedMs    int64      `json:"elapsedMs"`
	ErrorCode    string     `json:"errorCode,omitempty"`
}
