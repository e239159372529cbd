package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// fakeQdrant serves the subset of the REST API the index uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string][]point
	apiKeys     []string
	lastSearch  searchRequest
	conflict    bool
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: map[string]int{}, points: map[string][]point{}}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "collections" {
		http.NotFound(w, r)
		return
	}
	name := parts[1]
	size, exists := f.collections[name]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		if !exists {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"config": map[string]any{"params": map[string]any{
				"vectors": map[string]any{"size": size, "distance": "Cosine"},
			}}},
		})
	case len(parts) == 2 && r.Method == http.MethodPut:
		var body struct {
			Vectors vectorParams `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if exists || f.conflict {
			f.collections[name] = body.Vectors.Size
			http.Error(w, `{"status":{"error":"already exists"}}`, http.StatusConflict)
			return
		}
		f.collections[name] = body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
		if !exists {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points[name] = append(f.points[name], body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case len(parts) == 4 && parts[3] == "search" && r.Method == http.MethodPost:
		if !exists {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastSearch)
		result := []map[string]any{}
		for i, p := range f.points[name] {
			if i >= f.lastSearch.Limit {
				break
			}
			result = append(result, map[string]any{
				"id": p.ID, "score": 0.9 - float64(i)*0.1, "payload": p.Payload,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func setup(t *testing.T, cfg Config) (*Index, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	return New(cfg), fake
}

func TestNew_BuildsURLFromHostPort(t *testing.T) {
	x := New(Config{Host: "qdrant", Port: 7000})
	assert.Equal(t, "http://qdrant:7000", x.baseURL)
	assert.Equal(t, "course_CS101", x.Collection("CS101"))

	x = New(Config{URL: "http://example/", CollectionPrefix: "loom_"})
	assert.Equal(t, "http://example", x.baseURL)
	assert.Equal(t, "loom_CS101", x.Collection("CS101"))
}

func TestEnsureNamespace_CreatesOnce(t *testing.T) {
	x, fake := setup(t, Config{})
	ctx := context.Background()

	require.NoError(t, x.EnsureNamespace(ctx, "CS101", 4))
	require.NoError(t, x.EnsureNamespace(ctx, "CS101", 4))
	assert.Equal(t, 4, fake.collections["course_CS101"])
}

func TestEnsureNamespace_DimensionMismatch(t *testing.T) {
	x, _ := setup(t, Config{})
	ctx := context.Background()

	require.NoError(t, x.EnsureNamespace(ctx, "CS101", 4))
	err := x.EnsureNamespace(ctx, "CS101", 8)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEnsureNamespace_ConflictIsTolerated(t *testing.T) {
	x, fake := setup(t, Config{})
	fake.conflict = true

	require.NoError(t, x.EnsureNamespace(context.Background(), "CS101", 4))
}

func TestEnsureNamespace_RejectsZeroDim(t *testing.T) {
	x, _ := setup(t, Config{})
	assert.ErrorIs(t, x.EnsureNamespace(context.Background(), "CS101", 0), domain.ErrInvalidInput)
}

func TestUpsertAndSearch(t *testing.T) {
	x, fake := setup(t, Config{APIKey: "secret"})
	ctx := context.Background()
	require.NoError(t, x.EnsureNamespace(ctx, "CS101", 2))

	records := []domain.VectorRecord{
		{ID: 1, Vector: []float32{1, 0}, Payload: domain.VectorPayload{ChunkID: "a", CourseID: "CS101", Text: "alpha"}},
		{ID: 2, Vector: []float32{0, 1}, Payload: domain.VectorPayload{ChunkID: "b", CourseID: "CS101", Text: "beta"}},
	}
	require.NoError(t, x.Upsert(ctx, "CS101", records))

	hits, err := x.Search(ctx, "CS101", []float32{1, 0}, 5, 0.85)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].ID)
	assert.Equal(t, "alpha", hits[0].Payload.Text)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)

	require.NotNil(t, fake.lastSearch.ScoreThreshold)
	assert.InDelta(t, 0.85, *fake.lastSearch.ScoreThreshold, 1e-9)
	assert.True(t, fake.lastSearch.WithPayload)
	for _, key := range fake.apiKeys {
		assert.Equal(t, "secret", key)
	}
}

func TestSearch_NoThresholdWhenZero(t *testing.T) {
	x, fake := setup(t, Config{})
	ctx := context.Background()
	require.NoError(t, x.EnsureNamespace(ctx, "CS101", 2))

	_, err := x.Search(ctx, "CS101", []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	assert.Nil(t, fake.lastSearch.ScoreThreshold)
	assert.Equal(t, 3, fake.lastSearch.Limit)
}

func TestSearch_MissingCollection(t *testing.T) {
	x, _ := setup(t, Config{})

	_, err := x.Search(context.Background(), "NOPE", []float32{1}, 3, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = x.Upsert(context.Background(), "NOPE", []domain.VectorRecord{{ID: 1, Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
