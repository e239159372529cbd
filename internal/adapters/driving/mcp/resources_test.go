package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

func TestExtractCourseID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid course documents URI",
			uri:      "loom://courses/CS101/documents",
			expected: "CS101",
		},
		{
			name:     "invalid prefix",
			uri:      "file://courses/CS101/documents",
			expected: "",
		},
		{
			name:     "missing documents suffix",
			uri:      "loom://courses/CS101",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractCourseID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleCoursesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns courses", func(t *testing.T) {
		ports := validPorts()
		ports.Catalog = &mockCatalogService{courses: []domain.Course{{ID: "CS101", Name: "Intro"}}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleCoursesResource(ctx, makeReadResourceRequest("loom://courses"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var courses []map[string]string
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &courses))
		require.Len(t, courses, 1)
		assert.Equal(t, "CS101", courses[0]["id"])
		assert.Equal(t, "Intro", courses[0]["name"])
	})

	t.Run("returns error on failure", func(t *testing.T) {
		ports := validPorts()
		ports.Catalog = &mockCatalogService{err: errors.New("db closed")}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleCoursesResource(ctx, makeReadResourceRequest("loom://courses"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing courses")
	})
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents", func(t *testing.T) {
		ports := validPorts()
		ports.Catalog = &mockCatalogService{documents: []domain.Document{
			{ID: "d1", CourseID: "CS101", Filename: "syllabus.pdf", SHA256: "abc", Bytes: 42},
		}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("loom://courses/CS101/documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"filename": "syllabus.pdf"`)
	})

	t.Run("invalid URI is not found", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("loom://courses/CS101"))

		assert.Error(t, err)
	})

	t.Run("unknown course is not found", func(t *testing.T) {
		ports := validPorts()
		ports.Catalog = &mockCatalogService{docsErr: domain.ErrNotFound}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("loom://courses/NOPE/documents"))

		assert.Error(t, err)
	})
}
