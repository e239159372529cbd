package driving

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// IngestService adds documents to a course.
type IngestService interface {
	// Ingest extracts, chunks, embeds and indexes a single file.
	// Re-ingesting identical bytes converges to the same records.
	Ingest(ctx context.Context, in domain.IngestInput) (*domain.IngestResult, error)
}
