// Package chunker splits extracted document text into overlapping fixed-size windows.
package chunker

import (
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits text into fixed-size chunks.
// Sizes count Unicode code points, not bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Normalize collapses CRLF and lone CR line endings into LF.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Split returns the windows of the normalised text in order.
// Empty text produces no windows.
func (p *Processor) Split(text string) []string {
	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	windows := make([]string, 0, n/step+1)

	start := 0
	for {
		end := min(start+p.chunkSize, n)
		windows = append(windows, string(runes[start:end]))
		if end == n {
			break
		}
		start = max(0, end-p.overlap)
	}

	return windows
}

// Process splits the document text into chunks owned by doc.
// Chunk identity depends only on the document ID and the chunk index.
func (p *Processor) Process(doc *domain.Document, text string) []domain.Chunk {
	windows := p.Split(text)
	if len(windows) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			CourseID:   doc.CourseID,
			Index:      i,
			SHA256:     domain.HashText(w),
			Text:       w,
		})
	}

	return chunks
}
