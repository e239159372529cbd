package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockExtractor implements driven.TextExtractor for testing.
type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _ []byte) (string, error) {
	return m.text, m.err
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Without a fixed embedding it returns one vector of dims per input.
type mockEmbeddingService struct {
	embedding  []float32
	embedErr   error
	dims       int
	short      bool
	batchCalls int
	mu         sync.Mutex
}

func (m *mockEmbeddingService) vector() []float32 {
	if m.embedding != nil {
		return m.embedding
	}
	dims := m.dims
	if dims == 0 {
		dims = 3
	}
	v := make([]float32, dims)
	v[0] = 1
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	n := len(texts)
	if m.short && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = m.vector()
	}
	return out, nil
}

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits       []domain.VectorHit
	searchErr  error
	ensureErr  error
	upsertErr  error
	ensured    map[string]int
	upserted   []domain.VectorRecord
	searchedNS string
	searchedK  int
	minScore   float64
}

var _ driven.VectorIndex = (*mockVectorIndex)(nil)

func (m *mockVectorIndex) EnsureNamespace(_ context.Context, ns string, dim int) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	if m.ensured == nil {
		m.ensured = make(map[string]int)
	}
	m.ensured[ns] = dim
	return nil
}

func (m *mockVectorIndex) Upsert(_ context.Context, _ string, records []domain.VectorRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockVectorIndex) Search(
	_ context.Context, ns string, _ []float32, k int, minScore float64,
) ([]domain.VectorHit, error) {
	m.searchedNS, m.searchedK, m.minScore = ns, k, minScore
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockLLMService implements driven.LLMService for testing.
// It records the last call.
type mockLLMService struct {
	reply    domain.Message
	chatErr  error
	model    string
	messages []domain.Message
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(
	_ context.Context, model string, messages []domain.Message, opts driven.ChatOptions,
) (domain.Message, error) {
	m.model, m.messages, m.opts = model, messages, opts
	if m.chatErr != nil {
		return domain.Message{}, m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLMService) Close() error { return nil }

// mockRawStore implements driven.RawStore for testing.
type mockRawStore struct {
	saved map[string][]byte
	err   error
}

func (m *mockRawStore) Save(_ context.Context, courseID, filename string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	path := courseID + "/" + filename
	m.saved[path] = data
	return path, nil
}

// failingCourseStore returns err from every call.
type failingCourseStore struct {
	err error
}

func (f *failingCourseStore) EnsureCourse(context.Context, domain.Course) error { return f.err }

func (f *failingCourseStore) GetCourse(context.Context, string) (*domain.Course, error) {
	return nil, f.err
}

func (f *failingCourseStore) ListCourses(context.Context) ([]domain.Course, error) { return nil, f.err }

func (f *failingCourseStore) UpdateCourse(context.Context, string, domain.CourseUpdate) (*domain.Course, error) {
	return nil, f.err
}

// stubRetrieval implements driving.RetrievalService for testing.
type stubRetrieval struct {
	contexts []domain.RetrievedContext
	err      error
	course   string
	query    string
}

func (s *stubRetrieval) Retrieve(_ context.Context, courseID, query string) ([]domain.RetrievedContext, error) {
	s.course, s.query = courseID, query
	return s.contexts, s.err
}

func (s *stubRetrieval) RetrieveTopK(ctx context.Context, courseID, query string, _ int) ([]domain.RetrievedContext, error) {
	return s.Retrieve(ctx, courseID, query)
}
