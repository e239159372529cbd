package driven

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// LLMService is the upstream chat completion provider.
//
// Implementations may include:
//   - OpenAI (gpt-4o, gpt-4o-mini)
//   - Any OpenAI-compatible server reachable through a base URL
type LLMService interface {
	// Chat runs a completion for the given model and returns the first choice.
	Chat(ctx context.Context, model string, messages []domain.Message, opts ChatOptions) (domain.Message, error)

	// Close releases resources.
	Close() error
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
