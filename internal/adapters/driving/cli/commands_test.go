package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

func writePDF(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func ingestFixture(t *testing.T) {
	t.Helper()
	path := writePDF(t, "syllabus.pdf", "CS101 Syllabus\nOffice hours are Tuesdays at 3pm.")
	defer resetFlags(ingestCmd)
	_, err := runCommand("ingest", "--course", "CS101", path)
	require.NoError(t, err)
}

func TestIngestCmd(t *testing.T) {
	t.Run("ingests files", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(ingestCmd)

		path := writePDF(t, "week1.pdf", "Week one covers pointers.")
		out, err := runCommand("ingest", "--course", "CS101", path)

		require.NoError(t, err)
		assert.Contains(t, out, "Ingested week1.pdf into CS101: 1 chunks, 1 vectors")
	})

	t.Run("requires course flag", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(ingestCmd)

		_, err := runCommand("ingest", "file.pdf")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	t.Run("reports unsupported files and continues", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(ingestCmd)

		good := writePDF(t, "good.pdf", "Some text.")
		bad := writePDF(t, "notes.txt", "Some text.")
		out, err := runCommand("ingest", "--course", "CS101", bad, good)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFile)
		assert.Contains(t, out, "Ingested good.pdf")
	})

	t.Run("json output", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(ingestCmd)

		path := writePDF(t, "week1.pdf", "Week one covers pointers.")
		out, err := runCommand("ingest", "--course", "CS101", "--json", path)

		require.NoError(t, err)
		assert.Contains(t, out, `"course_id": "CS101"`)
		assert.Contains(t, out, `"vector_upserts": 1`)
	})
}

func TestCoursesCmd(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		out, err := runCommand("courses", "list")

		require.NoError(t, err)
		assert.Contains(t, out, "No courses yet")
	})

	t.Run("list after ingest", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		ingestFixture(t)

		out, err := runCommand("courses")

		require.NoError(t, err)
		assert.Contains(t, out, "CS101")
	})

	t.Run("show lists documents", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		ingestFixture(t)

		out, err := runCommand("courses", "show", "CS101")

		require.NoError(t, err)
		assert.Contains(t, out, "ID:         CS101")
		assert.Contains(t, out, "Documents:  1")
		assert.Contains(t, out, "syllabus.pdf")
	})

	t.Run("show unknown course", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := runCommand("courses", "show", "NOPE")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("set guardrails", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(coursesSetCmd)

		out, err := runCommand("courses", "set", "CS101", "--guardrails", "Never write code for graded labs.")

		require.NoError(t, err)
		assert.Contains(t, out, "Guardrails: Never write code for graded labs.")
		assert.Contains(t, out, "Name:       CS101")

		course, err := catalogService.GetCourse(context.Background(), "CS101")
		require.NoError(t, err)
		assert.Equal(t, "Never write code for graded labs.", course.Guardrails)
	})

	t.Run("set requires a flag", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(coursesSetCmd)

		_, err := runCommand("courses", "set", "CS101")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to set")
	})

	t.Run("show requires an argument", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := runCommand("courses", "show")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}

func TestModelsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestFixture(t)

	out, err := runCommand("models")

	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "gpt-4o-mini", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "gpt-4o-mini@CS101")
	assert.Contains(t, lines[2], "loom:CS101")
}

func TestAskCmd(t *testing.T) {
	t.Run("answers with course context", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(askCmd)
		ingestFixture(t)

		out, err := runCommand("ask", "--course", "CS101", "When", "are", "office", "hours?")

		require.NoError(t, err)
		assert.Equal(t, "echo: When are office hours?", out)
		assert.Equal(t, "gpt-4o-mini", testLLM.model)

		var sawContext bool
		for _, m := range testLLM.messages {
			if m.Role == domain.RoleSystem && strings.Contains(m.Content, "Office hours are Tuesdays") {
				sawContext = true
			}
		}
		assert.True(t, sawContext, "upstream call should carry retrieved context")
	})

	t.Run("course model selects course", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(askCmd)
		ingestFixture(t)

		_, err := runCommand("ask", "--model", "loom:CS101", "hello")

		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", testLLM.model)
	})

	t.Run("missing course", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(askCmd)

		_, err := runCommand("ask", "hello")

		assert.ErrorIs(t, err, domain.ErrMissingCourse)
	})
}

func TestConfigCmd(t *testing.T) {
	t.Run("init writes defaults once", func(t *testing.T) {
		t.Chdir(t.TempDir())

		out, err := runCommand("config", "init")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote loom.toml")

		info, err := os.Stat("loom.toml")
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		_, err = runCommand("config", "init")
		assert.Error(t, err)
	})

	t.Run("set then get", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := runCommand("config", "set", "retrieval.top_k", "4")
		require.NoError(t, err)
		_, err = runCommand("config", "set", "chat.model", "gpt-4o")
		require.NoError(t, err)

		out, err := runCommand("config", "get", "chat.model")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", out)

		out, err = runCommand("config", "get")
		require.NoError(t, err)
		assert.Contains(t, out, "retrieval.top_k = 4")
	})

	t.Run("get unknown key", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := runCommand("config", "get", "nope.key")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not set")
	})
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, int64(6), parseValue("6"))
	assert.Equal(t, 0.5, parseValue("0.5"))
	assert.Equal(t, "gpt-4o", parseValue("gpt-4o"))
}

func TestServeCmd(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		require.NotNil(t, serveCmd.Flags().Lookup("addr"))
		require.NotNil(t, serveCmd.Flags().Lookup("watch"))
	})

	t.Run("bad inbox stops the server", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(serveCmd)

		_, err := runCommand("serve", "--addr", "127.0.0.1:0", "--watch", "/non/existent/inbox")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "inbox error")
	})

	t.Run("serves until cancelled", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer resetFlags(serveCmd)
		inbox := t.TempDir()

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		serveCmd.SetContext(ctx)
		defer serveCmd.SetContext(context.Background())

		out, err := runCommand("serve", "--addr", "127.0.0.1:0", "--watch", inbox)

		require.NoError(t, err)
		assert.Contains(t, out, "Loom gateway listening on 127.0.0.1:0")
	})
}

func TestWatchCmd_RequiresDir(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestMCPServeCmd_HasPortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestConfigCmd_UsesConfigStore(t *testing.T) {
	store := memory.NewConfigStore()
	original := openConfigStore
	openConfigStore = func(string) (driven.ConfigStore, error) { return store, nil }
	defer func() { openConfigStore = original }()

	_, err := runCommand("config", "set", "server.metrics", "false")
	require.NoError(t, err)

	assert.False(t, store.GetBool("server.metrics"))
	_, ok := store.Get("server.metrics")
	assert.True(t, ok)

	out, err := runCommand("config", "get", "server.metrics")
	require.NoError(t, err)
	assert.Equal(t, "false", out)
}
