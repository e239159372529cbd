package domain

// VectorRecord is the embedding of one chunk inside a course index.
type VectorRecord struct {
	// ID is the numeric point id, derived from the chunk ID.
	ID uint64

	// Vector is the embedding.
	Vector []float32

	// Payload mirrors the chunk fields needed at query time.
	Payload VectorPayload
}

// VectorPayload is stored alongside each vector.
type VectorPayload struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	SHA256     string `json:"sha256"`
	CourseID   string `json:"course_id"`
	Text       string `json:"text"`
}

// VectorHit is a single similarity search result.
type VectorHit struct {
	ID      uint64
	Score   float64
	Payload VectorPayload
}
