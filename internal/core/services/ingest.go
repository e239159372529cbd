package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
	"github.com/custodia-labs/loom-gateway/internal/postprocessors/chunker"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the extraction, chunking, embedding and indexing pipeline.
type IngestService struct {
	extractor driven.TextExtractor
	courses   driven.CourseStore
	documents driven.DocumentStore
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	chunker   *chunker.Processor
	rawStore  driven.RawStore
	now       func() time.Time
}

// NewIngestService creates an ingestion service.
// A nil chunker uses the default window and overlap.
func NewIngestService(
	extractor driven.TextExtractor,
	courses driven.CourseStore,
	documents driven.DocumentStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	c *chunker.Processor,
) *IngestService {
	if c == nil {
		c = chunker.New()
	}
	return &IngestService{
		extractor: extractor,
		courses:   courses,
		documents: documents,
		embedder:  embedder,
		index:     index,
		chunker:   c,
		now:       time.Now,
	}
}

// SetRawStore enables archiving of the original uploads.
func (s *IngestService) SetRawStore(store driven.RawStore) {
	s.rawStore = store
}

// Ingest adds one PDF to a course.
//
// Document and chunk identities are content addressed, so running the
// same upload twice rewrites the same rows and vectors. A failure after
// the document row is written leaves it in place; retrying heals.
func (s *IngestService) Ingest(ctx context.Context, in domain.IngestInput) (*domain.IngestResult, error) {
	courseID := strings.TrimSpace(in.CourseID)
	if courseID == "" {
		return nil, fmt.Errorf("%w: course_id is required", domain.ErrInvalidInput)
	}
	filename := filepath.Base(strings.TrimSpace(in.Filename))
	if filename == "." || filename == string(filepath.Separator) || !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, domain.ErrUnsupportedFile
	}

	logger.Debug("ingest: course=%s file=%s bytes=%d", courseID, filename, len(in.Data))

	if s.rawStore != nil {
		path, err := s.rawStore.Save(ctx, courseID, filename, in.Data)
		if err != nil {
			return nil, fmt.Errorf("archiving upload: %w", err)
		}
		logger.Debug("ingest: archived to %s", path)
	}

	text, err := s.extractor.Extract(ctx, filename, in.Data)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	now := s.now().UTC()
	doc := &domain.Document{
		ID:        domain.HashBytes(in.Data),
		CourseID:  courseID,
		Filename:  filename,
		Bytes:     int64(len(in.Data)),
		CreatedAt: now,
	}
	doc.SHA256 = doc.ID

	if err := s.courses.EnsureCourse(ctx, domain.Course{ID: courseID, Name: courseID, CreatedAt: now}); err != nil {
		return nil, fmt.Errorf("saving course: %w", err)
	}
	created, err := s.documents.SaveDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}
	if !created {
		logger.Debug("ingest: document %s already known, re-indexing", doc.ID)
	}

	chunks := s.chunker.Process(doc, text)
	result := &domain.IngestResult{
		CourseID:   courseID,
		DocumentID: doc.ID,
		Filename:   filename,
		Bytes:      doc.Bytes,
		Chunks:     len(chunks),
	}
	if len(chunks) == 0 {
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(vectors[i]), dim)
		}
		records[i] = domain.VectorRecord{
			ID:     domain.VectorID(c.ID),
			Vector: vectors[i],
			Payload: domain.VectorPayload{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				ChunkIndex: c.Index,
				SHA256:     c.SHA256,
				CourseID:   courseID,
				Text:       c.Text,
			},
		}
	}

	if err := s.index.EnsureNamespace(ctx, courseID, dim); err != nil {
		return nil, fmt.Errorf("preparing course index: %w", err)
	}
	if err := s.index.Upsert(ctx, courseID, records); err != nil {
		return nil, fmt.Errorf("writing vectors: %w", err)
	}
	if err := s.documents.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("saving chunks: %w", err)
	}

	result.VectorUpserts = len(records)
	logger.Info("ingested %s into %s: %d chunks", filename, courseID, len(chunks))
	return result, nil
}
