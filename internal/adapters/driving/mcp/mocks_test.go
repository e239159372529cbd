package mcp

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results  []domain.RetrievedContext
	err      error
	courseID string
	query    string
	k        int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, courseID, query string) ([]domain.RetrievedContext, error) {
	m.courseID, m.query, m.k = courseID, query, 0
	return m.results, m.err
}

func (m *mockRetrievalService) RetrieveTopK(
	_ context.Context, courseID, query string, k int,
) ([]domain.RetrievedContext, error) {
	m.courseID, m.query, m.k = courseID, query, k
	return m.results, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	courses   []domain.Course
	documents []domain.Document
	err       error
	docsErr   error
}

func (m *mockCatalogService) ListModels(_ context.Context) ([]domain.ModelInfo, error) {
	return nil, m.err
}

func (m *mockCatalogService) ListCourses(_ context.Context) ([]domain.Course, error) {
	return m.courses, m.err
}

func (m *mockCatalogService) GetCourse(_ context.Context, _ string) (*domain.Course, error) {
	if len(m.courses) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.courses[0], m.err
}

func (m *mockCatalogService) UpdateCourse(
	_ context.Context, id string, _ domain.CourseUpdate,
) (*domain.Course, error) {
	return &domain.Course{ID: id}, m.err
}

func (m *mockCatalogService) ListDocuments(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.docsErr
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	req    domain.ChatRequest
	forced string
	answer string
	err    error
}

func (m *mockChatService) Complete(
	_ context.Context, req domain.ChatRequest, forced string,
) (*domain.ChatResponse, error) {
	m.req, m.forced = req, forced
	if m.err != nil {
		return nil, m.err
	}
	model := req.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &domain.ChatResponse{
		Model: model,
		Choices: []domain.ChatChoice{{
			Message: domain.Message{Role: domain.RoleAssistant, Content: m.answer},
		}},
	}, nil
}

func validPorts() *Ports {
	return &Ports{
		Retrieval: &mockRetrievalService{},
		Catalog:   &mockCatalogService{},
		Chat:      &mockChatService{},
	}
}
