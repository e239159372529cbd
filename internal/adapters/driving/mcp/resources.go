package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for Loom resources.
	uriScheme = "loom://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing courses.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "courses",
		Name:        "courses",
		Description: "List of all courses",
		MIMEType:    "application/json",
	}, s.handleCoursesResource)

	// Template for course documents.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "courses/{courseId}/documents",
		Name:        "course-documents",
		Description: "Documents ingested for a specific course",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

// handleCoursesResource returns a list of all courses.
func (s *Server) handleCoursesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	courses, err := s.ports.Catalog.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	type courseInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	infos := make([]courseInfo, len(courses))
	for i, c := range courses {
		infos[i] = courseInfo{ID: c.ID, Name: c.Name}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleDocumentsResource returns documents for a specific course.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract courseId from URI: loom://courses/{courseId}/documents
	courseID := extractCourseID(req.Params.URI)
	if courseID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Catalog.ListDocuments(ctx, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		SHA256   string `json:"sha256"`
		Bytes    int64  `json:"bytes"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:       docs[i].ID,
			Filename: docs[i].Filename,
			SHA256:   docs[i].SHA256,
			Bytes:    docs[i].Bytes,
		}
	}

	return jsonResource(req.Params.URI, infos)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCourseID extracts the course ID from a URI like loom://courses/{courseId}/documents.
func extractCourseID(uri string) string {
	const prefix = uriScheme + "courses/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
