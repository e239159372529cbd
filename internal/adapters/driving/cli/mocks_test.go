package cli

import (
	"bytes"
	"context"
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/loom-gateway/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/loom-gateway/internal/config"
	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/services"
)

// plainTextExtractor treats uploads as UTF-8 text.
type plainTextExtractor struct{}

func (plainTextExtractor) Extract(_ context.Context, _ string, data []byte) (string, error) {
	return string(data), nil
}

// echoLLM answers with the last user message and records the messages seen.
type echoLLM struct {
	model    string
	messages []domain.Message
}

func (e *echoLLM) Chat(
	_ context.Context, model string, messages []domain.Message, _ driven.ChatOptions,
) (domain.Message, error) {
	e.model = model
	e.messages = messages
	last, _ := domain.LastUserMessage(messages)
	return domain.Message{Role: domain.RoleAssistant, Content: "echo: " + last}, nil
}

func (e *echoLLM) Close() error { return nil }

var testLLM *echoLLM

// setupTestServices installs an in-memory service stack and returns a
// cleanup function restoring the previous services.
func setupTestServices() func() {
	oldConfig := appConfig
	oldIngest, oldChat, oldCatalog, oldRetrieval := ingestService, chatService, catalogService, retrievalService

	courses := memory.NewCourseStore()
	documents := memory.NewDocumentStore()
	embedder := hashing.NewEmbeddingService(64)
	index := vectormemory.NewIndex()
	resolver := services.NewModelResolver("", "")
	retrieval := services.NewRetrievalService(embedder, index, services.DefaultTopK, services.DefaultMinScore)
	testLLM = &echoLLM{}

	appConfig = config.Default()
	appConfig.Embedding.Provider = config.EmbeddingHashing
	ingestService = services.NewIngestService(plainTextExtractor{}, courses, documents, embedder, index, nil)
	chatService = services.NewChatService(resolver, courses, retrieval, testLLM)
	catalogService = services.NewCatalogService(resolver, courses, documents)
	retrievalService = retrieval

	return func() {
		appConfig = oldConfig
		ingestService, chatService, catalogService, retrievalService = oldIngest, oldChat, oldCatalog, oldRetrieval
	}
}

// runCommand executes the root command with args and returns its output.
func runCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return strings.TrimSpace(buf.String()), err
}
