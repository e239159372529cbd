package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

type recordingIngest struct {
	mu    sync.Mutex
	calls []domain.IngestInput
}

func (r *recordingIngest) Ingest(_ context.Context, in domain.IngestInput) (*domain.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, in)
	return &domain.IngestResult{CourseID: in.CourseID, Filename: in.Filename, Chunks: 1}, nil
}

func (r *recordingIngest) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func startWatcher(t *testing.T, root string, ingest *recordingIngest) *Watcher {
	t.Helper()
	w := New(root, ingest, WithSettle(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	time.Sleep(100 * time.Millisecond)
	return w
}

func waitResult(t *testing.T, w *Watcher) Result {
	t.Helper()
	select {
	case res := <-w.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ingestion")
		return Result{}
	}
}

func TestWatcher_IngestsDroppedPDF(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "CS101"), 0755))
	ingest := &recordingIngest{}
	w := startWatcher(t, root, ingest)

	require.NoError(t, os.WriteFile(filepath.Join(root, "CS101", "syllabus.pdf"), []byte("%PDF-1.4"), 0644))

	res := waitResult(t, w)
	require.NoError(t, res.Err)
	assert.Equal(t, "CS101", res.CourseID)
	assert.Equal(t, "syllabus.pdf", res.Ingest.Filename)

	ingest.mu.Lock()
	defer ingest.mu.Unlock()
	require.Len(t, ingest.calls, 1)
	assert.Equal(t, []byte("%PDF-1.4"), ingest.calls[0].Data)
}

func TestWatcher_WatchesNewCourseDirectories(t *testing.T) {
	root := t.TempDir()
	ingest := &recordingIngest{}
	w := startWatcher(t, root, ingest)

	require.NoError(t, os.Mkdir(filepath.Join(root, "MATH200"), 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "MATH200", "notes.PDF"), []byte("x"), 0644))

	res := waitResult(t, w)
	assert.Equal(t, "MATH200", res.CourseID)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "CS101"), 0755))
	ingest := &recordingIngest{}
	startWatcher(t, root, ingest)

	require.NoError(t, os.WriteFile(filepath.Join(root, "loose.pdf"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "CS101", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "CS101", ".hidden.pdf"), []byte("x"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, ingest.count())
}

func TestWatcher_RunErrors(t *testing.T) {
	t.Run("missing inbox", func(t *testing.T) {
		w := New("/non/existent/inbox", &recordingIngest{})
		err := w.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inbox error")
	})

	t.Run("inbox is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		err := New(path, &recordingIngest{}).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestCourseFor(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "inbox")
	w := New(root, &recordingIngest{})

	tests := []struct {
		name   string
		path   string
		course string
		ok     bool
	}{
		{"pdf in course", filepath.Join(root, "CS101", "a.pdf"), "CS101", true},
		{"upper case extension", filepath.Join(root, "CS101", "a.PDF"), "CS101", true},
		{"not a pdf", filepath.Join(root, "CS101", "a.docx"), "", false},
		{"inbox root", filepath.Join(root, "a.pdf"), "", false},
		{"nested too deep", filepath.Join(root, "CS101", "sub", "a.pdf"), "", false},
		{"hidden file", filepath.Join(root, "CS101", ".a.pdf"), "", false},
		{"hidden course", filepath.Join(root, ".trash", "a.pdf"), "", false},
		{"outside inbox", filepath.Join(string(filepath.Separator), "elsewhere", "a.pdf"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course, ok := w.courseFor(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.course, course)
		})
	}
}
