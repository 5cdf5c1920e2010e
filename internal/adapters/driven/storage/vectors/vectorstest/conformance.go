// Package vectorstest checks that a driven.VectorIndex implementation
// honours the port contract.
package vectorstest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Factory opens a fresh, empty index. Cleanup is the caller's job.
type Factory func(t *testing.T) driven.VectorIndex

// Config is the collection every check runs against.
var Config = domain.CollectionConfig{
	Name:         "corpus",
	Dimension:    3,
	Metric:       domain.MetricCosine,
	ModelVersion: "test-embed@3",
}

// Entry builds an entry for documentID at ordinal with the given vector.
func Entry(documentID, module string, ordinal int, vec ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		ID:     fmt.Sprintf("%s-%d", documentID, ordinal),
		Vector: vec,
		Payload: domain.Payload{
			Content:       fmt.Sprintf("%s chunk %d", documentID, ordinal),
			Title:         documentID,
			Source:        documentID + ".md",
			Module:        module,
			Section:       "Intro",
			ChunkIndex:    ordinal,
			TotalChunks:   2,
			ModelVersion:  Config.ModelVersion,
			DocumentID:    documentID,
			SchemaVersion: domain.PayloadSchemaVersion,
		},
	}
}

// Run exercises newIndex against the VectorIndex contract.
func Run(t *testing.T, newIndex Factory) {
	ctx := context.Background()

	setup := func(t *testing.T) driven.VectorIndex {
		idx := newIndex(t)
		require.NoError(t, idx.EnsureCollection(ctx, Config))
		return idx
	}

	t.Run("EnsureCollectionIsIdempotent", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.EnsureCollection(ctx, Config))

		info, err := idx.CollectionInfo(ctx, Config.Name)
		require.NoError(t, err)
		assert.Equal(t, Config, info.Config)
		assert.Zero(t, info.Entries)
	})

	t.Run("EnsureCollectionRejectsMismatch", func(t *testing.T) {
		idx := setup(t)
		for _, mutate := range []func(*domain.CollectionConfig){
			func(c *domain.CollectionConfig) { c.Dimension = 4 },
			func(c *domain.CollectionConfig) { c.Metric = domain.MetricDot },
			func(c *domain.CollectionConfig) { c.ModelVersion = "other@3" },
		} {
			cfg := Config
			mutate(&cfg)
			assert.ErrorIs(t, idx.EnsureCollection(ctx, cfg), domain.ErrIndexIntegrity)
		}
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		idx := newIndex(t)
		_, err := idx.CollectionInfo(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SearchOrdersByScore", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{
			Entry("a", "module-1", 0, 1, 0, 0),
			Entry("a", "module-1", 1, 0, 1, 0),
		}))
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "b", []domain.IndexEntry{
			Entry("b", "module-2", 0, 0.9, 0.1, 0),
		}))

		hits, err := idx.Search(ctx, Config.Name, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "a-0", hits[0].EntryID)
		assert.Equal(t, "b-0", hits[1].EntryID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Greater(t, hits[0].Score, hits[1].Score)
		assert.Equal(t, Entry("a", "module-1", 0).Payload, hits[0].Payload)
	})

	t.Run("SearchAppliesFilter", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{Entry("a", "module-1", 0, 1, 0, 0)}))
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "b", []domain.IndexEntry{Entry("b", "module-2", 0, 1, 0, 0)}))

		hits, err := idx.Search(ctx, Config.Name, []float32{1, 0, 0}, 10, domain.ModuleFilter("module-2"))
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "b", hits[0].Payload.DocumentID)

		hits, err = idx.Search(ctx, Config.Name, []float32{1, 0, 0}, 10, domain.ModuleFilter("nowhere"))
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	})

	t.Run("SearchRejectsWrongDimension", func(t *testing.T) {
		idx := setup(t)
		_, err := idx.Search(ctx, Config.Name, []float32{1, 0}, 5, nil)
		assert.ErrorIs(t, err, domain.ErrIndexIntegrity)
	})

	t.Run("ReplaceDropsStaleEntries", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{
			Entry("a", "m", 0, 1, 0, 0),
			Entry("a", "m", 1, 0, 1, 0),
		}))
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{
			Entry("a", "m", 0, 0, 0, 1),
		}))

		info, err := idx.CollectionInfo(ctx, Config.Name)
		require.NoError(t, err)
		assert.Equal(t, 1, info.Entries)

		hits, err := idx.Search(ctx, Config.Name, []float32{0, 0, 1}, 5, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	})

	t.Run("ReplaceRejectsIncompatibleEntries", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{Entry("a", "m", 0, 1, 0, 0)}))

		bad := Entry("a", "m", 1, 1, 0)
		err := idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{Entry("a", "m", 0, 0, 1, 0), bad})
		assert.ErrorIs(t, err, domain.ErrIndexIntegrity)

		stale := Entry("a", "m", 1, 1, 0, 0)
		stale.Payload.ModelVersion = "other@3"
		err = idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{stale})
		assert.ErrorIs(t, err, domain.ErrIndexIntegrity)

		hits, err := idx.Search(ctx, Config.Name, []float32{1, 0, 0}, 5, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	})

	t.Run("DeleteDocument", func(t *testing.T) {
		idx := setup(t)
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", []domain.IndexEntry{Entry("a", "m", 0, 1, 0, 0)}))
		require.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "b", []domain.IndexEntry{Entry("b", "m", 0, 0, 1, 0)}))

		require.NoError(t, idx.DeleteDocument(ctx, Config.Name, "a"))
		require.NoError(t, idx.DeleteDocument(ctx, Config.Name, "never-indexed"))

		info, err := idx.CollectionInfo(ctx, Config.Name)
		require.NoError(t, err)
		assert.Equal(t, 1, info.Entries)
	})

	t.Run("ConcurrentReplaceSameDocument", func(t *testing.T) {
		idx := setup(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				entries := []domain.IndexEntry{Entry("a", "m", 0, 1, 0, 0)}
				if n%2 == 0 {
					entries = append(entries, Entry("a", "m", 1, 0, 1, 0))
				}
				assert.NoError(t, idx.ReplaceDocument(ctx, Config.Name, "a", entries))
			}(i)
		}
		wg.Wait()

		info, err := idx.CollectionInfo(ctx, Config.Name)
		require.NoError(t, err)
		assert.Contains(t, []int{1, 2}, info.Entries)

		hits, err := idx.Search(ctx, Config.Name, []float32{1, 1, 0}, 10, nil)
		require.NoError(t, err)
		assert.Len(t, hits, info.Entries)
	})
}
