package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/identity"
)

// writeTree creates files under a fresh temp dir and returns it.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newTestSource(t *testing.T, files map[string]string) *Source {
	t.Helper()
	src, err := New(writeTree(t, files), nil)
	require.NoError(t, err)
	return src
}

func TestNew(t *testing.T) {
	t.Run("resolves root to an absolute path", func(t *testing.T) {
		dir := t.TempDir()
		src, err := New(dir, nil)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(src.Root()))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "nope"), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		dir := writeTree(t, map[string]string{"a.md": "x"})
		_, err := New(filepath.Join(dir, "a.md"), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSource_Load(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"basics/loops.md":         "# Loops\n\nfor is the only loop.",
		"basics/variables.txt":    "var x int",
		"concurrency/channels.md": "---\ntitle: Channels\n---\nSend and receive.",
		"intro.markdown":          "Welcome.",
		"image.png":               "\x89PNG",
		".drafts/secret.md":       "# Draft",
		"basics/.notes.md":        "# Private",
	})

	docs, err := src.Load(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.SourcePath)
	}
	assert.Equal(t, []string{
		"basics/loops.md",
		"basics/variables.txt",
		"concurrency/channels.md",
		"intro.markdown",
	}, paths)

	loops := docs[0]
	assert.Equal(t, identity.DocumentID("basics/loops.md"), loops.ID)
	assert.Equal(t, "Loops", loops.Title)
	assert.Equal(t, []string{"basics"}, loops.SectionHierarchy)
	assert.NotEmpty(t, loops.Metadata["modified_at"])

	assert.Equal(t, "variables", docs[1].Title)
	assert.Equal(t, "Channels", docs[2].Title)
	assert.Equal(t, "intro", docs[3].Title)
	assert.Nil(t, docs[3].SectionHierarchy)
}

func TestSource_Load_EmptyDirectory(t *testing.T) {
	docs, err := newTestSource(t, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSource_Load_MalformedFrontMatter(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"good.md": "# Good",
		"bad.md":  "---\ntitle: [oops\n---\nbody",
	})

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "bad.md")
}

func TestSource_Load_Cancelled(t *testing.T) {
	src := newTestSource(t, map[string]string{"a.md": "a", "b.md": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_LoadPath(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"basics/loops.md": "# Loops",
		".hidden/a.md":    "# Hidden",
		"dir.md/inner.md": "# Inner",
	})
	ctx := context.Background()

	t.Run("existing file", func(t *testing.T) {
		doc, err := src.LoadPath(ctx, "basics/loops.md")
		require.NoError(t, err)
		assert.Equal(t, "Loops", doc.Title)
		assert.Equal(t, identity.DocumentID("basics/loops.md"), doc.ID)
	})

	t.Run("unclean path is normalised", func(t *testing.T) {
		doc, err := src.LoadPath(ctx, "basics/./loops.md")
		require.NoError(t, err)
		assert.Equal(t, "basics/loops.md", doc.SourcePath)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := src.LoadPath(ctx, "basics/gone.md")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("hidden file", func(t *testing.T) {
		_, err := src.LoadPath(ctx, ".hidden/a.md")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := src.LoadPath(ctx, "slides.pdf")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := src.LoadPath(ctx, "dir.md")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("escaping the root", func(t *testing.T) {
		_, err := src.LoadPath(ctx, "../outside.md")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
