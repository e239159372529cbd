package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Ensure CourseStore implements the interface.
var _ driven.CourseStore = (*CourseStore)(nil)

// CourseStore is an in-memory implementation of driven.CourseStore.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
}

// NewCourseStore creates a new in-memory course store.
func NewCourseStore() *CourseStore {
	return &CourseStore{courses: make(map[string]domain.Course)}
}

// EnsureCourse creates the course if it is not already stored.
func (s *CourseStore) EnsureCourse(_ context.Context, course domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[course.ID]; ok {
		return nil
	}
	if course.Name == "" {
		course.Name = course.ID
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	s.courses[course.ID] = course
	return nil
}

// GetCourse retrieves a course by ID.
func (s *CourseStore) GetCourse(_ context.Context, id string) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &course, nil
}

// ListCourses returns all courses ordered by ID.
func (s *CourseStore) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

// UpdateCourse applies the non-nil fields, creating the course if needed.
func (s *CourseStore) UpdateCourse(_ context.Context, id string, update domain.CourseUpdate) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[id]
	if !ok {
		course = domain.Course{ID: id, Name: id, CreatedAt: time.Now().UTC()}
	}
	if update.Name != nil {
		course.Name = *update.Name
	}
	if update.Guardrails != nil {
		course.Guardrails = *update.Guardrails
	}
	s.courses[id] = course
	return &course, nil
}
