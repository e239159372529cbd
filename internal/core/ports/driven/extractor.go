package driven

import "context"

// TextExtractor pulls plain text out of an uploaded file.
type TextExtractor interface {
	// Extract returns the text of data. Unreadable input returns an error
	// wrapping domain.ErrExtractionFailed.
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// RawStore archives the original bytes of uploaded files.
type RawStore interface {
	// Save writes data under the course and returns the stored location.
	Save(ctx context.Context, courseID, filename string, data []byte) (string, error)
}
