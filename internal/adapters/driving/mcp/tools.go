package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// SearchCourseInput is the input schema for the search_course tool.
type SearchCourseInput struct {
	CourseID string `json:"course_id" jsonschema:"the course whose material is searched"`
	Query    string `json:"query" jsonschema:"the text to find relevant passages for"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default from server config)"`
}

// SearchCourseOutput is the output schema for the search_course tool.
type SearchCourseOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is a single retrieved passage.
type PassageOutput struct {
	ChunkID string  `json:"chunk_id,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// ListCoursesInput is the (empty) input schema for the list_courses tool.
type ListCoursesInput struct{}

// ListCoursesOutput is the output schema for the list_courses tool.
type ListCoursesOutput struct {
	Courses []CourseOutput `json:"courses"`
	Count   int            `json:"count"`
}

// CourseOutput describes a course.
type CourseOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Guardrails string `json:"guardrails,omitempty"`
}

// AskCourseInput is the input schema for the ask_course tool.
type AskCourseInput struct {
	CourseID string `json:"course_id" jsonschema:"the course to answer from"`
	Question string `json:"question" jsonschema:"the question to answer"`
	Model    string `json:"model,omitempty" jsonschema:"upstream model (default from server config)"`
}

// AskCourseOutput is the output schema for the ask_course tool.
type AskCourseOutput struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_course",
		Description: "Find the passages of a course's documents most relevant to a query",
	}, s.handleSearchCourse)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_courses",
		Description: "List the courses that have material ingested",
	}, s.handleListCourses)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask_course",
			Description: "Answer a question using a course's material as context",
		}, s.handleAskCourse)
	}
}

// handleSearchCourse handles the search_course tool invocation.
func (s *Server) handleSearchCourse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchCourseInput,
) (*mcp.CallToolResult, SearchCourseOutput, error) {
	courseID := strings.TrimSpace(input.CourseID)
	if courseID == "" {
		return nil, SearchCourseOutput{}, fmt.Errorf("%w: course_id is required", domain.ErrInvalidInput)
	}

	var (
		results []domain.RetrievedContext
		err     error
	)
	if input.TopK > 0 {
		results, err = s.ports.Retrieval.RetrieveTopK(ctx, courseID, input.Query, input.TopK)
	} else {
		results, err = s.ports.Retrieval.Retrieve(ctx, courseID, input.Query)
	}
	if err != nil {
		return nil, SearchCourseOutput{}, err
	}

	output := SearchCourseOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = PassageOutput{ChunkID: r.ChunkID, Score: r.Score, Text: r.Text}
	}
	return nil, output, nil
}

// handleListCourses handles the list_courses tool invocation.
func (s *Server) handleListCourses(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListCoursesInput,
) (*mcp.CallToolResult, ListCoursesOutput, error) {
	courses, err := s.ports.Catalog.ListCourses(ctx)
	if err != nil {
		return nil, ListCoursesOutput{}, err
	}

	output := ListCoursesOutput{
		Courses: make([]CourseOutput, len(courses)),
		Count:   len(courses),
	}
	for i, c := range courses {
		output.Courses[i] = CourseOutput{ID: c.ID, Name: c.Name, Guardrails: c.Guardrails}
	}
	return nil, output, nil
}

// handleAskCourse handles the ask_course tool invocation.
func (s *Server) handleAskCourse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskCourseInput,
) (*mcp.CallToolResult, AskCourseOutput, error) {
	courseID := strings.TrimSpace(input.CourseID)
	if courseID == "" {
		return nil, AskCourseOutput{}, fmt.Errorf("%w: course_id is required", domain.ErrInvalidInput)
	}

	resp, err := s.ports.Chat.Complete(ctx, domain.ChatRequest{
		Model:    input.Model,
		Messages: []domain.Message{{Role: domain.RoleUser, Content: input.Question}},
	}, courseID)
	if err != nil {
		return nil, AskCourseOutput{}, err
	}

	output := AskCourseOutput{Model: resp.Model}
	if len(resp.Choices) > 0 {
		output.Answer = resp.Choices[0].Message.Content
	}
	return nil, output, nil
}
