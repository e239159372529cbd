// Package qdrant implements driven.VectorIndex over the Qdrant REST API.
// Each namespace maps to one collection named <prefix><namespace>, created
// on demand with cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollectionPrefix is prepended to every namespace.
const DefaultCollectionPrefix = "course_"

// Config holds connection settings.
type Config struct {
	// URL is the base URL, e.g. http://localhost:6333. Built from Host and Port when empty.
	URL  string
	Host string
	Port int

	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

// Index is a minimal REST client to Qdrant.
type Index struct {
	baseURL string
	apiKey  string
	prefix  string
	client  *http.Client
}

// New creates a Qdrant-backed index. No request is made until first use.
func New(cfg Config) *Index {
	base := cfg.URL
	if base == "" {
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = 6333
		}
		base = "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		prefix:  prefix,
		client:  &http.Client{Timeout: timeout},
	}
}

// Collection returns the collection name for a namespace.
func (x *Index) Collection(namespace string) string {
	return x.prefix + namespace
}

// statusError is a non-2xx response.
type statusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.method, e.path, e.status, e.body)
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureNamespace creates the collection if missing and checks its size otherwise.
func (x *Index) EnsureNamespace(ctx context.Context, namespace string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dim)
	}
	name := x.Collection(namespace)

	err := x.checkSize(ctx, name, dim)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	body := map[string]any{"vectors": vectorParams{Size: dim, Distance: "Cosine"}}
	err = x.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name), body, nil)
	switch statusOf(err) {
	case 0:
		return err
	case http.StatusConflict:
		// Created concurrently; confirm it matches.
		return x.checkSize(ctx, name, dim)
	default:
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
}

func (x *Index) checkSize(ctx context.Context, name string, dim int) error {
	var info collectionInfo
	err := x.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &info)
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", name, err)
	}
	if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dim {
		return fmt.Errorf("%w: collection %s has %d dimensions, got %d",
			domain.ErrDimensionMismatch, name, size, dim)
	}
	return nil
}

type point struct {
	ID      uint64               `json:"id"`
	Vector  []float32            `json:"vector"`
	Payload domain.VectorPayload `json:"payload"`
}

// Upsert writes points and waits for them to be indexed.
func (x *Index) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{ID: r.ID, Vector: r.Vector, Payload: r.Payload}
	}

	name := x.Collection(namespace)
	err := x.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name)+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold *float64  `json:"score_threshold,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      uint64               `json:"id"`
		Score   float64              `json:"score"`
		Payload domain.VectorPayload `json:"payload"`
	} `json:"result"`
}

// Search queries the namespace's collection.
func (x *Index) Search(
	ctx context.Context, namespace string, query []float32, k int, minScore float64,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}
	req := searchRequest{Vector: query, Limit: k, WithPayload: true}
	if minScore > 0 {
		req.ScoreThreshold = &minScore
	}

	name := x.Collection(namespace)
	var resp searchResponse
	err := x.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(name)+"/points/search", req, &resp)
	if statusOf(err) == http.StatusNotFound {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", name, err)
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Score < minScore {
			continue
		}
		hits = append(hits, domain.VectorHit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Close releases idle connections.
func (x *Index) Close() error {
	x.client.CloseIdleConnections()
	return nil
}

func (x *Index) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
