package domain

// RetrievedContext is a chunk of course text returned for a query.
type RetrievedContext struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Score is the similarity score, higher is more similar.
	Score float64 `json:"score"`

	// ChunkID identifies the chunk the text came from, when known.
	ChunkID string `json:"chunk_id,omitempty"`
}
