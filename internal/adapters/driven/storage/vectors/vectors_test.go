package vectors

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		metric domain.DistanceMetric
		a, b   []float32
		want   float64
	}{
		{"cosine identical", domain.MetricCosine, []float32{1, 2}, []float32{2, 4}, 1},
		{"cosine orthogonal", domain.MetricCosine, []float32{1, 0}, []float32{0, 1}, 0},
		{"cosine opposite", domain.MetricCosine, []float32{1, 0}, []float32{-1, 0}, -1},
		{"cosine zero vector", domain.MetricCosine, []float32{0, 0}, []float32{1, 0}, 0},
		{"dot", domain.MetricDot, []float32{1, 2}, []float32{3, 4}, 11},
		{"euclidean", domain.MetricEuclidean, []float32{0, 0}, []float32{3, 4}, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.metric, tt.a, tt.b), 1e-9)
		})
	}
}

func TestScore_DimensionMismatch(t *testing.T) {
	assert.True(t, math.IsInf(Score(domain.MetricCosine, []float32{1}, []float32{1, 2}), -1))
}

func TestRank(t *testing.T) {
	hits := []driven.VectorHit{
		{EntryID: "c", Score: 0.5, Payload: domain.Payload{ChunkIndex: 2}},
		{EntryID: "b", Score: 0.9, Payload: domain.Payload{ChunkIndex: 1}},
		{EntryID: "a", Score: 0.5, Payload: domain.Payload{ChunkIndex: 0}},
		{EntryID: "d", Score: 0.1},
	}

	got := Rank(hits, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].EntryID)
	assert.Equal(t, "a", got[1].EntryID)
	assert.Equal(t, "c", got[2].EntryID)
}

func TestRank_EmptyIsNonNil(t *testing.T) {
	got := Rank(nil, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEncodeDecode(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, float32(math.Pi)}

	got, err := Decode(Encode(vec))

	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestDecode_BadLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCheckEntries(t *testing.T) {
	cfg := domain.CollectionConfig{Name: "corpus", Dimension: 2, Metric: domain.MetricCosine, ModelVersion: "m1"}
	entry := func(id, doc string, dim int, model string) domain.IndexEntry {
		return domain.IndexEntry{
			ID:      id,
			Vector:  make([]float32, dim),
			Payload: domain.Payload{DocumentID: doc, ModelVersion: model},
		}
	}

	assert.NoError(t, CheckEntries(cfg, "d1", []domain.IndexEntry{entry("e1", "d1", 2, "m1"), entry("e2", "d1", 2, "m1")}))
	assert.ErrorIs(t, CheckEntries(cfg, "d1", []domain.IndexEntry{entry("e1", "d1", 3, "m1")}), domain.ErrIndexIntegrity)
	assert.ErrorIs(t, CheckEntries(cfg, "d1", []domain.IndexEntry{entry("e1", "d1", 2, "m2")}), domain.ErrIndexIntegrity)
	assert.ErrorIs(t, CheckEntries(cfg, "d1", []domain.IndexEntry{entry("e1", "d2", 2, "m1")}), domain.ErrIndexIntegrity)
	assert.ErrorIs(t, CheckEntries(cfg, "d1", []domain.IndexEntry{entry("e1", "d1", 2, "m1"), entry("e1", "d1", 2, "m1")}), domain.ErrInvalidInput)
	assert.ErrorIs(t, CheckQuery(cfg, []float32{1}), domain.ErrIndexIntegrity)
}

func TestKeyedMutex(t *testing.T) {
	var k KeyedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("doc")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}
