package vectors

import (
	"math"
	"sort"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Score compares a query against a stored vector under metric.
// Higher is closer for every metric. Vectors of different lengths score
// negative infinity so they always rank last.
func Score(metric domain.DistanceMetric, query, stored []float32) float64 {
	if len(query) != len(stored) {
		return math.Inf(-1)
	}
	switch metric {
	case domain.MetricDot:
		return dot(query, stored)
	case domain.MetricEuclidean:
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(stored[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		var d, nq, ns float64
		for i := range query {
			q, s := float64(query[i]), float64(stored[i])
			d += q * s
			nq += q * q
			ns += s * s
		}
		if nq == 0 || ns == 0 {
			return 0
		}
		return d / (math.Sqrt(nq) * math.Sqrt(ns))
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Rank orders hits by descending score, then chunk index, then entry ID,
// and truncates to limit. A non-positive limit keeps every hit.
func Rank(hits []driven.VectorHit, limit int) []driven.VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Payload.ChunkIndex != b.Payload.ChunkIndex {
			return a.Payload.ChunkIndex < b.Payload.ChunkIndex
		}
		return a.EntryID < b.EntryID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		return []driven.VectorHit{}
	}
	return hits
}
