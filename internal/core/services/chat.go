package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Sampling defaults applied when a request leaves them unset.
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 512
)

// DefaultSystemPrompt is the tutor persona placed before the course guardrails.
const DefaultSystemPrompt = "You are a course-specific tutor.\n" +
	"Follow academic honesty; do not write graded work verbatim. " +
	"Cite which document or chunk you used if asked.\n" +
	"If the answer is not in the provided context, say you don't know and ask for more details.\n"

// ChatService answers chat requests with retrieved course context.
type ChatService struct {
	resolver     *ModelResolver
	courses      driven.CourseStore
	retrieval    driving.RetrievalService
	llm          driven.LLMService
	systemPrompt string
	now          func() time.Time
	newID        func() string
}

// NewChatService creates a chat service.
func NewChatService(
	resolver *ModelResolver,
	courses driven.CourseStore,
	retrieval driving.RetrievalService,
	llm driven.LLMService,
) *ChatService {
	return &ChatService{
		resolver:     resolver,
		courses:      courses,
		retrieval:    retrieval,
		llm:          llm,
		systemPrompt: DefaultSystemPrompt,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// SetSystemPrompt replaces the persona preamble. Empty keeps the current one.
func (s *ChatService) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		s.systemPrompt = prompt
	}
}

// Complete resolves model and course, retrieves context and calls upstream.
func (s *ChatService) Complete(
	ctx context.Context, req domain.ChatRequest, forcedCourse string,
) (*domain.ChatResponse, error) {
	route := s.resolver.Parse(req.Model)
	courseID, err := s.resolver.ResolveCourse(req, forcedCourse, route)
	if err != nil {
		return nil, err
	}
	logger.Debug("chat: model=%q upstream=%s course=%s", req.Model, route.Upstream, courseID)
	if req.Stream {
		logger.Debug("chat: streaming requested, returning a single response")
	}

	query, ok := domain.LastUserMessage(req.Messages)
	if !ok {
		return nil, domain.ErrNoUserMessage
	}

	guardrails, err := s.guardrails(ctx, courseID)
	if err != nil {
		return nil, err
	}

	contexts, err := s.retrieval.Retrieve(ctx, courseID, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	messages := BuildMessages(s.systemPrompt, guardrails, contexts, req.Messages)
	opts := driven.ChatOptions{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	if req.Temperature != nil && *req.Temperature > 0 {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		opts.MaxTokens = *req.MaxTokens
	}

	reply, err := s.llm.Chat(ctx, route.Upstream, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if reply.Role == "" {
		reply.Role = domain.RoleAssistant
	}

	return &domain.ChatResponse{
		ID:      "chatcmpl-" + s.newID(),
		Object:  "chat.completion",
		Created: s.now().Unix(),
		Model:   route.Upstream,
		Choices: []domain.ChatChoice{{
			Index:        0,
			Message:      reply,
			FinishReason: "stop",
		}},
	}, nil
}

func (s *ChatService) guardrails(ctx context.Context, courseID string) (string, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading course: %w", err)
	}
	return course.Guardrails, nil
}

// BuildMessages assembles the upstream conversation: the persona with the
// course guardrails, an optional context message, then the caller's messages.
func BuildMessages(
	systemPrompt, guardrails string, contexts []domain.RetrievedContext, conversation []domain.Message,
) []domain.Message {
	messages := make([]domain.Message, 0, len(conversation)+2)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: systemPrompt + guardrails + "\n",
	})

	if block := ContextBlock(contexts); strings.TrimSpace(block) != "" {
		messages = append(messages, domain.Message{
			Role:    domain.RoleSystem,
			Content: "Context:\n" + block,
		})
	}

	return append(messages, conversation...)
}

// ContextBlock formats retrieved chunks as score-tagged blocks separated by blank lines.
func ContextBlock(contexts []domain.RetrievedContext) string {
	blocks := make([]string, 0, len(contexts))
	for _, c := range contexts {
		blocks = append(blocks, fmt.Sprintf("[score=%.3f]\n%s", c.Score, c.Text))
	}
	return strings.Join(blocks, "\n\n")
}
