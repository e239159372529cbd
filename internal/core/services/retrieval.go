package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 6

// DefaultMinScore keeps every hit regardless of similarity.
const DefaultMinScore = 0.0

// RetrievalService embeds queries and searches a course's vector index.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	topK     int
	minScore float64
}

// NewRetrievalService creates a retrieval service.
// A non-positive topK falls back to DefaultTopK.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	topK int,
	minScore float64,
) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
	}
}

// Retrieve returns up to the configured number of chunks for the query.
func (s *RetrievalService) Retrieve(ctx context.Context, courseID, query string) ([]domain.RetrievedContext, error) {
	return s.RetrieveTopK(ctx, courseID, query, s.topK)
}

// RetrieveTopK returns up to k chunks for the query, best first.
// A missing index or a failed search yields no context rather than an
// error, so chat degrades to an answer without course material.
func (s *RetrievalService) RetrieveTopK(
	ctx context.Context, courseID, query string, k int,
) ([]domain.RetrievedContext, error) {
	if k <= 0 {
		k = s.topK
	}
	if strings.TrimSpace(query) == "" || courseID == "" {
		return []domain.RetrievedContext{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Search(ctx, courseID, vector, k, s.minScore)
	if err != nil {
		logger.Warn("retrieval for course %q returned no context: %v", courseID, err)
		return []domain.RetrievedContext{}, nil
	}
	logger.Debug("retrieval: course=%s k=%d hits=%d", courseID, k, len(hits))

	results := make([]domain.RetrievedContext, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.RetrievedContext{
			Text:    h.Payload.Text,
			Score:   h.Score,
			ChunkID: h.Payload.ChunkID,
		})
	}
	return results, nil
}
