package driven

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// VectorIndex stores embeddings in per-course namespaces and answers
// nearest-neighbour queries against them.
type VectorIndex interface {
	// EnsureNamespace creates the namespace sized to dim if it does not exist.
	// An existing namespace with a different dimension returns
	// domain.ErrDimensionMismatch. Concurrent creation is not an error.
	EnsureNamespace(ctx context.Context, namespace string, dim int) error

	// Upsert writes records into the namespace, replacing records with the same ID.
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error

	// Search returns up to k records with a score of at least minScore,
	// ordered by descending score. A missing namespace returns domain.ErrNotFound.
	Search(ctx context.Context, namespace string, query []float32, k int, minScore float64) ([]domain.VectorHit, error)

	// Close releases resources.
	Close() error
}
