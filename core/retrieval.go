package core

import "context"

// SourceCategory distinguishes the two snippet corpora.
type SourceCategory string

const (
	// CategoryDocumentation marks reference documentation snippets.
	CategoryDocumentation SourceCategory = "documentation"
	// CategoryExample marks example page definition snippets.
	CategoryExample SourceCategory = "example"
)

// RetrievalResult is one ranked snippet returned by a Retriever. Results are
// owned transiently by the agent that requested them; only a compact summary
// ends up on the event stream.
type RetrievalResult struct {
	Source   string         `json:"source"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"` // 0.0–1.0, higher is more relevant
	Category SourceCategory `json:"category"`
}

// Retriever is the contract to the external retrieval collaborator. Query
// returns up to topK snippets ordered by descending score. Implementations
// must return an empty slice, not an error, when no index is available so
// agents can degrade to generation without retrieved context.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]RetrievalResult, error)
}
