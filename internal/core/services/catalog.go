package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// modelOwner is reported as owned_by for every listed model.
const modelOwner = "loom"

// CatalogService lists courses and the virtual models that select them.
type CatalogService struct {
	resolver  *ModelResolver
	courses   driven.CourseStore
	documents driven.DocumentStore
}

// NewCatalogService creates a catalog service.
func NewCatalogService(resolver *ModelResolver, courses driven.CourseStore, documents driven.DocumentStore) *CatalogService {
	return &CatalogService{resolver: resolver, courses: courses, documents: documents}
}

// ListModels returns the default model and "<model>@<course>" plus
// "<prefix>:<course>" for every course.
func (s *CatalogService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	courses, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	base := s.resolver.DefaultModel()
	models := make([]domain.ModelInfo, 0, 1+2*len(courses))
	models = append(models, domain.ModelInfo{ID: base, Object: "model", OwnedBy: modelOwner})

	for _, c := range courses {
		meta := &domain.ModelMetadata{CourseID: c.ID, Name: c.Name}
		models = append(models,
			domain.ModelInfo{ID: base + "@" + c.ID, Object: "model", OwnedBy: modelOwner, Metadata: meta},
			domain.ModelInfo{ID: s.resolver.Prefix() + ":" + c.ID, Object: "model", OwnedBy: modelOwner, Metadata: meta},
		)
	}
	return models, nil
}

// ListCourses returns all courses.
func (s *CatalogService) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return s.courses.ListCourses(ctx)
}

// GetCourse returns a single course.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	return s.courses.GetCourse(ctx, strings.TrimSpace(id))
}

// UpdateCourse changes the name or guardrails of a course.
func (s *CatalogService) UpdateCourse(
	ctx context.Context, id string, update domain.CourseUpdate,
) (*domain.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: course_id is required", domain.ErrInvalidInput)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("%w: course name cannot be empty", domain.ErrInvalidInput)
	}
	return s.courses.UpdateCourse(ctx, id, update)
}

// ListDocuments returns the documents of a course.
// Unknown courses return domain.ErrNotFound.
func (s *CatalogService) ListDocuments(ctx context.Context, courseID string) ([]domain.Document, error) {
	if _, err := s.courses.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.documents.ListDocuments(ctx, courseID)
}
