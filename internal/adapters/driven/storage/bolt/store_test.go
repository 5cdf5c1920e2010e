package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors/vectorstest"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestVectorIndex_Contract(t *testing.T) {
	vectorstest.Run(t, func(t *testing.T) driven.VectorIndex {
		return setupTestStore(t).VectorIndex()
	})
}

func TestVectorIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.bolt")

	store, err := NewStore(path)
	require.NoError(t, err)
	idx := store.VectorIndex()
	require.NoError(t, idx.EnsureCollection(ctx, vectorstest.Config))
	require.NoError(t, idx.ReplaceDocument(ctx, vectorstest.Config.Name, "a", []domain.IndexEntry{
		vectorstest.Entry("a", "m", 0, 1, 0, 0),
		vectorstest.Entry("a", "m", 1, 0, 1, 0),
	}))
	require.NoError(t, idx.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())

	hits, err := store.VectorIndex().Search(ctx, vectorstest.Config.Name, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a-1", hits[0].EntryID)
}

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()
	rec := &domain.DocumentRecord{
		ID:          "doc-1",
		SourcePath:  "module-1/b.md",
		Module:      "module-1",
		ContentHash: "h1",
		ChunkCount:  2,
		IngestedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, docs.SaveDocument(ctx, rec))
	require.NoError(t, docs.SaveDocument(ctx, &domain.DocumentRecord{ID: "doc-2", SourcePath: "module-1/a.md", Module: "module-1"}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.DocumentRecord{ID: "doc-3", SourcePath: "z.md"}))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "module-1/a.md", list[0].SourcePath)

	modules, err := docs.ListModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"module-1"}, modules)

	require.NoError(t, docs.DeleteDocument(ctx, "doc-1"))
	_, err = docs.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
