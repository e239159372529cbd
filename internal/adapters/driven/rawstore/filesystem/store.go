// Package filesystem archives raw uploads on local disk under
// <root>/<course_id>/<filename>.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RawStore = (*Store)(nil)

// Store writes uploads beneath a root directory.
type Store struct {
	root string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the archive root directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes data to <root>/<courseID>/<base(filename)>, replacing any
// existing file, and returns the written path.
func (s *Store) Save(ctx context.Context, courseID, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	course := safeName(courseID)
	name := safeName(filename)
	if course == "" || name == "" {
		return "", fmt.Errorf("%w: course and filename are required", domain.ErrInvalidInput)
	}

	dir := filepath.Join(s.root, course)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing archive file: %w", err)
	}
	return path, nil
}

// safeName reduces s to a single path element.
func safeName(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = filepath.Base(strings.TrimSpace(s))
	if s == "." || s == ".." || s == "/" {
		return ""
	}
	return s
}
