// Package openai provides an LLM service adapter using the OpenAI chat
// completions API or any compatible server.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultLLMTimeout is the request timeout when none is configured.
const DefaultLLMTimeout = 120 * time.Second

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService forwards chat completions to the provider.
// The model is chosen per call.
type LLMService struct {
	client *openai.Client
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &LLMService{client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Chat sends the conversation and returns the first choice.
func (s *LLMService) Chat(
	ctx context.Context, model string, messages []domain.Message, opts driven.ChatOptions,
) (domain.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: openai chat: %v", domain.ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("%w: openai returned no choices", domain.ErrLLMUnavailable)
	}

	choice := resp.Choices[0].Message
	return domain.Message{Role: choice.Role, Content: choice.Content}, nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
