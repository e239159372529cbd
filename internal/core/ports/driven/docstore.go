package driven

import (
	"context"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

// CourseStore persists courses.
type CourseStore interface {
	// EnsureCourse creates the course if absent. An existing course is left untouched.
	EnsureCourse(ctx context.Context, course domain.Course) error

	// GetCourse retrieves a course by ID. Returns domain.ErrNotFound if absent.
	GetCourse(ctx context.Context, id string) (*domain.Course, error)

	// ListCourses returns all courses ordered by ID.
	ListCourses(ctx context.Context) ([]domain.Course, error)

	// UpdateCourse applies the non-nil fields of update, creating the course if absent.
	UpdateCourse(ctx context.Context, id string, update domain.CourseUpdate) (*domain.Course, error)
}

// DocumentStore persists documents and chunks.
type DocumentStore interface {
	// SaveDocument inserts the document unless one with the same ID exists.
	// Returns true when a new row was written.
	SaveDocument(ctx context.Context, doc *domain.Document) (bool, error)

	// SaveChunks inserts chunks, skipping IDs that already exist.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListDocuments returns documents for a course.
	ListDocuments(ctx context.Context, courseID string) ([]domain.Document, error)
}
