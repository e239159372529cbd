// Package watcher ingests PDFs dropped into an inbox directory.
//
// The inbox holds one sub-directory per course:
//
//	<inbox>/<course_id>/<file>.pdf
//
// Files are ingested once writes to them have settled. Files directly in
// the inbox, hidden files and non-PDF files are ignored.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// DefaultSettle is how long a file must be quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Result reports one ingestion attempt.
type Result struct {
	Path     string
	CourseID string
	Ingest   *domain.IngestResult
	Err      error
}

// Watcher turns inbox file events into ingestion calls.
type Watcher struct {
	root   string
	ingest driving.IngestService
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	results chan Result
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides the quiet period before ingestion.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a watcher for root.
func New(root string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		root:    filepath.Clean(root),
		ingest:  ingest,
		settle:  DefaultSettle,
		pending: make(map[string]*time.Timer),
		results: make(chan Result, 16),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Results delivers the outcome of every ingestion. Undelivered results
// are dropped when the buffer is full.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Run watches until ctx is cancelled. PDFs already present are not
// ingested; use the ingest command for those.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("inbox error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("inbox error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			if err := fsw.Add(filepath.Join(w.root, e.Name())); err != nil {
				return fmt.Errorf("watching course %s: %w", e.Name(), err)
			}
		}
	}

	logger.Info("watching %s for course uploads", w.root)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if filepath.Dir(ev.Name) == w.root {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
			if err := fsw.Add(ev.Name); err != nil {
				logger.Warn("watching course %s: %v", info.Name(), err)
			}
		}
		return
	}

	courseID, ok := w.courseFor(ev.Name)
	if !ok {
		return
	}
	w.schedule(ctx, ev.Name, courseID)
}

// courseFor reports the course of a file in a course directory, or false
// if the file should be ignored.
func (w *Watcher) courseFor(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", false
	}
	course, name := parts[0], parts[1]
	if course == ".." || isHidden(course) || isHidden(name) {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", false
	}
	return course, true
}

func (w *Watcher) schedule(ctx context.Context, path, courseID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[path]; ok && prev.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingestFile(ctx, path, courseID)
	})
	w.pending[path] = t
}

func (w *Watcher) ingestFile(ctx context.Context, path, courseID string) {
	if ctx.Err() != nil {
		return
	}
	res := Result{Path: path, CourseID: courseID}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
	} else {
		res.Ingest, res.Err = w.ingest.Ingest(ctx, domain.IngestInput{
			CourseID: courseID,
			Filename: filepath.Base(path),
			Data:     data,
		})
	}

	switch {
	case res.Err == nil:
		logger.Info("ingested %s into %s: %d chunks", filepath.Base(path), courseID, res.Ingest.Chunks)
	case errors.Is(res.Err, context.Canceled):
		return
	default:
		logger.Warn("ingesting %s into %s: %v", filepath.Base(path), courseID, res.Err)
	}

	select {
	case w.results <- res:
	default:
	}
}

// stop cancels timers that have not fired and waits for running ingests.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
