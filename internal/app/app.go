// Package app wires configuration to concrete adapters and core services.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/embedding/hashing"
	openaiembed "github.com/custodia-labs/loom-gateway/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/extractor/pdf"
	openaillm "github.com/custodia-labs/loom-gateway/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/rawstore/filesystem"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/sqlite"
	memoryvector "github.com/custodia-labs/loom-gateway/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/loom-gateway/internal/config"
	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/services"
	"github.com/custodia-labs/loom-gateway/internal/logger"
	"github.com/custodia-labs/loom-gateway/internal/postprocessors/chunker"
	"github.com/custodia-labs/loom-gateway/internal/ratelimit"
)

// App holds the assembled services and the resources backing them.
type App struct {
	Config    *config.Config
	Resolver  *services.ModelResolver
	Ingest    *services.IngestService
	Retrieval *services.RetrievalService
	Chat      *services.ChatService
	Catalog   *services.CatalogService

	closers []func() error
}

// New builds the application from cfg. Close releases everything opened,
// including on a partial failure.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	courses, documents, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)

	index := newIndex(cfg)
	a.closers = append(a.closers, index.Close)

	llm, err := newLLM(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, llm.Close)

	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	a.Resolver = services.NewModelResolver(cfg.Chat.Model, cfg.Chat.ModelPrefix)
	a.Ingest = services.NewIngestService(pdf.New(), courses, documents, embedder, index, chunks)
	if cfg.Files.Archive && cfg.Files.RawDir != "" {
		a.Ingest.SetRawStore(filesystem.New(cfg.Files.RawDir))
	}
	a.Retrieval = services.NewRetrievalService(embedder, index, cfg.Retrieval.TopK, cfg.Retrieval.MinScore)
	a.Chat = services.NewChatService(a.Resolver, courses, a.Retrieval, llm)
	a.Chat.SetSystemPrompt(cfg.Chat.SystemPrompt)
	a.Catalog = services.NewCatalogService(a.Resolver, courses, documents)

	logger.Debug("app: storage=%s vector=%s embedding=%s(%s)",
		cfg.Storage.Driver, cfg.Vector.Driver, cfg.Embedding.Provider, embedder.ModelName())
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStores(ctx context.Context) (driven.CourseStore, driven.DocumentStore, error) {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewCourseStore(), memory.NewDocumentStore(), nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store.CourseStore(), store.DocumentStore(), nil
	case config.StorageSQLite, "":
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store.CourseStore(), store.DocumentStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case config.EmbeddingHashing:
		return hashing.NewEmbeddingService(cfg.Embedding.Dimensions), nil
	case config.EmbeddingOpenAI, "":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.Embedding.Model,
			Timeout: cfg.OpenAI.Timeout(),
			RateLimit: ratelimit.Config{
				RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
				BurstSize:         cfg.Embedding.Burst,
			},
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func newIndex(cfg *config.Config) driven.VectorIndex {
	if cfg.Vector.Driver == config.VectorMemory {
		return memoryvector.NewIndex()
	}
	q := cfg.Vector.Qdrant
	return qdrant.New(qdrant.Config{
		URL:              q.URL,
		Host:             q.Host,
		Port:             q.Port,
		APIKey:           q.APIKey,
		CollectionPrefix: q.CollectionPrefix,
	})
}

func newLLM(cfg *config.Config) (driven.LLMService, error) {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; chat completions will fail")
		return unconfiguredLLM{}, nil
	}
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout(),
	})
}

// unconfiguredLLM keeps ingestion and catalogue commands usable without a key.
type unconfiguredLLM struct{}

func (unconfiguredLLM) Chat(context.Context, string, []domain.Message, driven.ChatOptions) (domain.Message, error) {
	return domain.Message{}, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrLLMUnavailable)
}

func (unconfiguredLLM) Close() error { return nil }
