package domain

import "time"

// Document represents an ingested file.
// Its identity is the content hash of the raw bytes, so identical uploads
// always map to the same document.
type Document struct {
	// ID is the sha256 hex digest of the raw file bytes.
	ID string

	// CourseID links to the owning Course.
	CourseID string

	// Filename is the uploaded file name (base name only).
	Filename string

	// SHA256 duplicates ID for readers of the persisted schema.
	SHA256 string

	// Bytes is the raw file length.
	Bytes int64

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time
}

// Chunk is a fixed-size window of a document's extracted text.
// Chunks are immutable once created.
type Chunk struct {
	// ID is derived from the document ID and the chunk index.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// CourseID links to the Course owning the parent document.
	CourseID string

	// Index is the ordinal position within the document, starting at 0.
	Index int

	// SHA256 is the content hash of Text.
	SHA256 string

	// Text is the chunk content.
	Text string
}

// IngestInput is a single file submitted for ingestion.
type IngestInput struct {
	CourseID string
	Filename string
	Data     []byte
}

// IngestResult summarises an ingestion run.
type IngestResult struct {
	CourseID      string `json:"course_id"`
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	Bytes         int64  `json:"bytes"`
	Chunks        int    `json:"chunks"`
	VectorUpserts int    `json:"vector_upserts"`
}
