package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

func newChatFixture(t *testing.T, contexts []domain.RetrievedContext) (*ChatService, *mockLLMService, *stubRetrieval, *memory.CourseStore) {
	t.Helper()
	courses := memory.NewCourseStore()
	retrieval := &stubRetrieval{contexts: contexts}
	llm := &mockLLMService{reply: domain.Message{Role: domain.RoleAssistant, Content: "Tuesdays at 3pm."}}
	svc := NewChatService(NewModelResolver("", ""), courses, retrieval, llm)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	svc.newID = func() string { return "fixed" }
	return svc, llm, retrieval, courses
}

func userRequest(model, content string) domain.ChatRequest {
	return domain.ChatRequest{
		Model:    model,
		Messages: []domain.Message{{Role: domain.RoleUser, Content: content}},
	}
}

func TestChatService_Complete_Envelope(t *testing.T) {
	svc, llm, retrieval, _ := newChatFixture(t, nil)

	resp, err := svc.Complete(context.Background(), userRequest("loom:CS101", "When?"), "")
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-fixed", resp.ID)
	assert.Equal(t, "chat.completion", resp.Object)
	assert.Equal(t, int64(1700000000), resp.Created)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, 0, resp.Choices[0].Index)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "Tuesdays at 3pm."}, resp.Choices[0].Message)

	assert.Equal(t, "gpt-4o-mini", llm.model)
	assert.Equal(t, "CS101", retrieval.course)
	assert.Equal(t, "When?", retrieval.query)
}

func TestChatService_Complete_Messages(t *testing.T) {
	svc, llm, _, courses := newChatFixture(t, []domain.RetrievedContext{
		{Text: "Office hours are Tuesdays at 3pm", Score: 0.91234},
		{Text: "Room 204", Score: 0.5},
	})
	rails := "Never give full solutions."
	_, err := courses.UpdateCourse(context.Background(), "CS101", domain.CourseUpdate{Guardrails: &rails})
	require.NoError(t, err)

	req := domain.ChatRequest{
		Model: "gpt-4o@CS101",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "hi"},
			{Role: domain.RoleUser, Content: "When are office hours?"},
		},
	}
	_, err = svc.Complete(context.Background(), req, "")
	require.NoError(t, err)

	require.Len(t, llm.messages, 5)
	assert.Equal(t, domain.RoleSystem, llm.messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt+rails+"\n", llm.messages[0].Content)
	assert.Equal(t, domain.Message{
		Role:    domain.RoleSystem,
		Content: "Context:\n[score=0.912]\nOffice hours are Tuesdays at 3pm\n\n[score=0.500]\nRoom 204",
	}, llm.messages[1])
	assert.Equal(t, req.Messages, llm.messages[2:])
	assert.Equal(t, "gpt-4o", llm.model)
}

func TestChatService_Complete_NoContextMessageWhenEmpty(t *testing.T) {
	svc, llm, _, _ := newChatFixture(t, []domain.RetrievedContext{})

	_, err := svc.Complete(context.Background(), userRequest("", "q"), "CS101")
	require.NoError(t, err)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, DefaultSystemPrompt+"\n", llm.messages[0].Content)
	assert.Equal(t, domain.RoleUser, llm.messages[1].Role)
}

func TestChatService_Complete_SamplingDefaults(t *testing.T) {
	svc, llm, _, _ := newChatFixture(t, nil)

	_, err := svc.Complete(context.Background(), userRequest("loom:CS101", "q"), "")
	require.NoError(t, err)
	assert.InDelta(t, DefaultTemperature, llm.opts.Temperature, 1e-9)
	assert.Equal(t, DefaultMaxTokens, llm.opts.MaxTokens)

	temp, maxTokens := 0.7, 100
	req := userRequest("loom:CS101", "q")
	req.Temperature, req.MaxTokens = &temp, &maxTokens
	_, err = svc.Complete(context.Background(), req, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, llm.opts.Temperature, 1e-9)
	assert.Equal(t, 100, llm.opts.MaxTokens)

	zero, none := 0.0, 0
	req.Temperature, req.MaxTokens = &zero, &none
	_, err = svc.Complete(context.Background(), req, "")
	require.NoError(t, err)
	assert.InDelta(t, DefaultTemperature, llm.opts.Temperature, 1e-9)
	assert.Equal(t, DefaultMaxTokens, llm.opts.MaxTokens)
}

func TestChatService_Complete_ForcedCourseWins(t *testing.T) {
	svc, _, retrieval, _ := newChatFixture(t, nil)

	req := userRequest("gpt-4o-mini@MODEL", "q [course:TAG]")
	req.Loom = &domain.ChatExtension{CourseID: "BODY"}
	_, err := svc.Complete(context.Background(), req, "PATH")
	require.NoError(t, err)
	assert.Equal(t, "PATH", retrieval.course)
}

func TestChatService_Complete_Errors(t *testing.T) {
	t.Run("missing course", func(t *testing.T) {
		svc, llm, _, _ := newChatFixture(t, nil)
		_, err := svc.Complete(context.Background(), userRequest("gpt-4o-mini", "q"), "")
		assert.ErrorIs(t, err, domain.ErrMissingCourse)
		assert.Nil(t, llm.messages)
	})

	t.Run("no user message", func(t *testing.T) {
		svc, _, _, _ := newChatFixture(t, nil)
		req := domain.ChatRequest{
			Model:    "loom:CS101",
			Messages: []domain.Message{{Role: domain.RoleSystem, Content: "be nice"}},
		}
		_, err := svc.Complete(context.Background(), req, "")
		assert.ErrorIs(t, err, domain.ErrNoUserMessage)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc, llm, _, _ := newChatFixture(t, nil)
		llm.chatErr = domain.ErrLLMUnavailable
		_, err := svc.Complete(context.Background(), userRequest("loom:CS101", "q"), "")
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		svc, _, retrieval, _ := newChatFixture(t, nil)
		retrieval.err = domain.ErrEmbeddingUnavailable
		_, err := svc.Complete(context.Background(), userRequest("loom:CS101", "q"), "")
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("course store failure", func(t *testing.T) {
		llm := &mockLLMService{}
		svc := NewChatService(NewModelResolver("", ""), &failingCourseStore{err: errors.New("db down")}, &stubRetrieval{}, llm)
		_, err := svc.Complete(context.Background(), userRequest("loom:CS101", "q"), "")
		assert.ErrorContains(t, err, "loading course")
	})
}

func TestChatService_Complete_DefaultsRoleAndPrompt(t *testing.T) {
	svc, llm, _, _ := newChatFixture(t, nil)
	llm.reply = domain.Message{Content: "answer"}
	svc.SetSystemPrompt("You are a teaching assistant.\n")
	svc.SetSystemPrompt("  ")

	resp, err := svc.Complete(context.Background(), userRequest("loom:CS101", "q"), "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, "You are a teaching assistant.\n\n", llm.messages[0].Content)
}

func TestContextBlock(t *testing.T) {
	assert.Equal(t, "", ContextBlock(nil))
	assert.Equal(t, "[score=1.000]\na", ContextBlock([]domain.RetrievedContext{{Text: "a", Score: 1}}))
}
