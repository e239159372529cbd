package driving

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// CatalogService exposes courses, their documents and the virtual model list.
type CatalogService interface {
	// ListModels returns the default upstream model followed by two
	// virtual models per course.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)

	// ListCourses returns all courses.
	ListCourses(ctx context.Context) ([]domain.Course, error)

	// GetCourse returns a course or domain.ErrNotFound.
	GetCourse(ctx context.Context, id string) (*domain.Course, error)

	// UpdateCourse changes a course's name or guardrails, creating it if needed.
	UpdateCourse(ctx context.Context, id string, update domain.CourseUpdate) (*domain.Course, error)

	// ListDocuments returns the documents ingested for a course.
	ListDocuments(ctx context.Context, courseID string) ([]domain.Document, error)
}
