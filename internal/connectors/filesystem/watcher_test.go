package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects watch batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *recorder) seen() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, b := range r.batches {
		for _, p := range b {
			out[p] = true
		}
	}
	return out
}

// startWatch runs Watch in the background and waits for it to settle.
func startWatch(t *testing.T, src *Source) (*recorder, func()) {
	t.Helper()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	w := NewWatcher(src, 50*time.Millisecond)
	go func() { done <- w.Watch(ctx, rec.record) }()
	time.Sleep(100 * time.Millisecond)

	return rec, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watch did not stop after cancel")
		}
	}
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("reports created, modified and deleted files", func(t *testing.T) {
		src := newTestSource(t, map[string]string{
			"basics/loops.md": "# Loops",
			"old.md":          "# Old",
		})
		rec, stop := startWatch(t, src)
		defer stop()

		root := src.Root()
		require.NoError(t, os.WriteFile(filepath.Join(root, "new.md"), []byte("# New"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "basics", "loops.md"), []byte("# Loops v2"), 0o644))
		require.NoError(t, os.Remove(filepath.Join(root, "old.md")))

		require.Eventually(t, func() bool {
			s := rec.seen()
			return s["new.md"] && s["basics/loops.md"] && s["old.md"]
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("ignores hidden and unsupported files", func(t *testing.T) {
		src := newTestSource(t, nil)
		rec, stop := startWatch(t, src)
		defer stop()

		root := src.Root()
		require.NoError(t, os.WriteFile(filepath.Join(root, ".scratch.md"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "photo.png"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "marker.md"), []byte("x"), 0o644))

		require.Eventually(t, func() bool { return rec.seen()["marker.md"] }, 2*time.Second, 20*time.Millisecond)
		s := rec.seen()
		assert.False(t, s[".scratch.md"])
		assert.False(t, s["photo.png"])
	})

	t.Run("watches directories created later", func(t *testing.T) {
		src := newTestSource(t, nil)
		rec, stop := startWatch(t, src)
		defer stop()

		dir := filepath.Join(src.Root(), "concurrency")
		require.NoError(t, os.Mkdir(dir, 0o755))
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "channels.md"), []byte("# Channels"), 0o644))

		require.Eventually(t, func() bool { return rec.seen()["concurrency/channels.md"] }, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("batches are sorted and de-duplicated", func(t *testing.T) {
		src := newTestSource(t, nil)
		rec, stop := startWatch(t, src)
		defer stop()

		p := filepath.Join(src.Root(), "b.md")
		for i := 0; i < 3; i++ {
			require.NoError(t, os.WriteFile(p, []byte{byte('a' + i)}, 0o644))
		}
		require.NoError(t, os.WriteFile(filepath.Join(src.Root(), "a.md"), []byte("a"), 0o644))

		require.Eventually(t, func() bool {
			s := rec.seen()
			return s["a.md"] && s["b.md"]
		}, 2*time.Second, 20*time.Millisecond)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		for _, b := range rec.batches {
			assert.IsIncreasing(t, b)
		}
	})
}

func TestHandleFsEvent(t *testing.T) {
	src := newTestSource(t, map[string]string{
		"lesson.md":  "# Lesson",
		".hidden.md": "# Hidden",
		"image.png":  "png",
	})
	require.NoError(t, os.Mkdir(filepath.Join(src.Root(), "dir.md"), 0o755))
	w := NewWatcher(src, 0)
	root := src.Root()

	tests := []struct {
		name string
		file string
		op   fsnotify.Op
		want string
		ok   bool
	}{
		{"create", "lesson.md", fsnotify.Create, "lesson.md", true},
		{"write", "lesson.md", fsnotify.Write, "lesson.md", true},
		{"write and chmod", "lesson.md", fsnotify.Write | fsnotify.Chmod, "lesson.md", true},
		{"remove of missing file", "gone.md", fsnotify.Remove, "gone.md", true},
		{"rename away", "moved.md", fsnotify.Rename, "moved.md", true},
		{"chmod only", "lesson.md", fsnotify.Chmod, "", false},
		{"hidden", ".hidden.md", fsnotify.Write, "", false},
		{"unsupported", "image.png", fsnotify.Write, "", false},
		{"directory", "dir.md", fsnotify.Write, "", false},
		{"outside root", "../elsewhere.md", fsnotify.Write, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.handleFsEvent(fsnotify.Event{Name: filepath.Join(root, tt.file), Op: tt.op})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWatcher_DefaultDebounce(t *testing.T) {
	w := NewWatcher(newTestSource(t, nil), 0)
	assert.Equal(t, DefaultDebounce, w.debounce)
}
