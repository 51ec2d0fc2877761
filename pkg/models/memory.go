package models

import "time"

// MemoryEntry is a durable, embedding-indexed snippet consulted during
// planning. Embedding is nil when no embedder was available at store time.
type MemoryEntry struct {
	ID        int64          `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Embedding []float32      `json:"-"`

	// Score is the cosine similarity against the query for semantic
	// search results; zero otherwise.
	Score float64 `json:"score,omitempty"`
}
