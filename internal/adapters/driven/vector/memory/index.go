// Package memory provides an in-process vector index with exact cosine search.
// It backs the "memory" vector driver and tests; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type namespace struct {
	dim     int
	records map[uint64]domain.VectorRecord
}

// Index is a map of namespaces, each holding vectors of one dimension.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{namespaces: make(map[string]*namespace)}
}

// EnsureNamespace creates the namespace if it is absent.
func (x *Index) EnsureNamespace(_ context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dim)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if ns, ok := x.namespaces[name]; ok {
		if ns.dim != dim {
			return fmt.Errorf("%w: namespace %q has %d dimensions, got %d", domain.ErrDimensionMismatch, name, ns.dim, dim)
		}
		return nil
	}
	x.namespaces[name] = &namespace{dim: dim, records: make(map[uint64]domain.VectorRecord)}
	return nil
}

// Upsert writes records, replacing any with the same ID.
func (x *Index) Upsert(_ context.Context, name string, records []domain.VectorRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	ns, ok := x.namespaces[name]
	if !ok {
		return fmt.Errorf("namespace %q: %w", name, domain.ErrNotFound)
	}
	for _, r := range records {
		if len(r.Vector) != ns.dim {
			return fmt.Errorf("%w: record %d has %d dimensions, namespace has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), ns.dim)
		}
		r.Vector = append([]float32(nil), r.Vector...)
		ns.records[r.ID] = r
	}
	return nil
}

// Search returns the k most similar records scoring at least minScore.
func (x *Index) Search(
	_ context.Context, name string, query []float32, k int, minScore float64,
) ([]domain.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ns, ok := x.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("namespace %q: %w", name, domain.ErrNotFound)
	}
	if len(query) != ns.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace has %d",
			domain.ErrDimensionMismatch, len(query), ns.dim)
	}

	hits := make([]domain.VectorHit, 0, len(ns.records))
	for id, r := range ns.records {
		score := cosineSimilarity(query, r.Vector)
		if score < minScore {
			continue
		}
		hits = append(hits, domain.VectorHit{ID: id, Score: score, Payload: r.Payload})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of records in a namespace.
func (x *Index) Len(name string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if ns, ok := x.namespaces[name]; ok {
		return len(ns.records)
	}
	return 0
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
