package domain

import (
	"fmt"
	"strings"
)

// DistanceMetric is the similarity function a collection is built for.
type DistanceMetric string

// Supported distance metrics.
const (
	// MetricCosine ignores vector magnitude. It is the default.
	MetricCosine DistanceMetric = "cosine"

	// MetricDot is the raw inner product.
	MetricDot DistanceMetric = "dot"

	// MetricEuclidean scores by negated L2 distance so that higher is closer.
	MetricEuclidean DistanceMetric = "euclidean"
)

// IsValid returns true if the metric is recognised.
func (m DistanceMetric) IsValid() bool {
	switch m {
	case MetricCosine, MetricDot, MetricEuclidean:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m DistanceMetric) String() string {
	return string(m)
}

// ParseDistanceMetric accepts a metric name case-insensitively.
// An empty name yields MetricCosine.
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	if s == "" {
		return MetricCosine, nil
	}
	m := DistanceMetric(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", NewInvalidInput("distance_metric", "unknown metric %q", s)
	}
	return m, nil
}

// CollectionConfig is fixed when a collection is created.
type CollectionConfig struct {
	Name         string
	Dimension    int
	Metric       DistanceMetric
	ModelVersion string
}

// Validate checks that the configuration is complete.
func (c CollectionConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return NewInvalidInput("collection_name", "must not be empty")
	case c.Dimension <= 0:
		return NewInvalidInput("vector_dimension", "must be positive, got %d", c.Dimension)
	case !c.Metric.IsValid():
		return NewInvalidInput("distance_metric", "unknown metric %q", c.Metric)
	case strings.TrimSpace(c.ModelVersion) == "":
		return NewInvalidInput("embedding_model_version", "must not be empty")
	}
	return nil
}

// CheckCompatible returns an IndexIntegrityError if want differs from the
// existing collection c in dimension, metric or model version.
func (c CollectionConfig) CheckCompatible(want CollectionConfig) error {
	var diffs []string
	if c.Dimension != want.Dimension {
		diffs = append(diffs, fmt.Sprintf("dimension %d != %d", want.Dimension, c.Dimension))
	}
	if c.Metric != want.Metric {
		diffs = append(diffs, fmt.Sprintf("metric %s != %s", want.Metric, c.Metric))
	}
	if c.ModelVersion != want.ModelVersion {
		diffs = append(diffs, fmt.Sprintf("model version %q != %q", want.ModelVersion, c.ModelVersion))
	}
	if len(diffs) == 0 {
		return nil
	}
	return &IndexIntegrityError{Collection: c.Name, Reason: "existing collection differs: " + strings.Join(diffs, ", ")}
}

// CheckEntry returns an IndexIntegrityError if the entry cannot be stored
// in the collection.
func (c CollectionConfig) CheckEntry(e IndexEntry) error {
	if len(e.Vector) != c.Dimension {
		return &IndexIntegrityError{
			Collection: c.Name,
			Reason:     fmt.Sprintf("entry %s has dimension %d, collection has %d", e.ID, len(e.Vector), c.Dimension),
		}
	}
	if e.Payload.ModelVersion != c.ModelVersion {
		return &IndexIntegrityError{
			Collection: c.Name,
			Reason:     fmt.Sprintf("entry %s embedded with %q, collection uses %q", e.ID, e.Payload.ModelVersion, c.ModelVersion),
		}
	}
	return nil
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Config  CollectionConfig
	Entries int
}

// PayloadSchemaVersion is bumped whenever Payload fields change.
const PayloadSchemaVersion = 1

// Payload keys as stored by index backends.
const (
	PayloadKeyContent       = "content"
	PayloadKeyTitle         = "title"
	PayloadKeySource        = "source"
	PayloadKeyModule        = "module"
	PayloadKeySection       = "section"
	PayloadKeyChunkIndex    = "chunk_index"
	PayloadKeyTotalChunks   = "total_chunks"
	PayloadKeyModelVersion  = "model_version"
	PayloadKeyDocumentID    = "document_id"
	PayloadKeySchemaVersion = "schema_version"
)

// Payload is the stable chunk metadata stored next to each vector.
type Payload struct {
	Content       string `json:"content"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	Module        string `json:"module"`
	Section       string `json:"section"`
	ChunkIndex    int    `json:"chunk_index"`
	TotalChunks   int    `json:"total_chunks"`
	ModelVersion  string `json:"model_version"`
	DocumentID    string `json:"document_id"`
	SchemaVersion int    `json:"schema_version"`
}

// Field returns the value of a filterable field.
func (p Payload) Field(name string) (string, bool) {
	switch name {
	case FilterFieldModule:
		return p.Module, true
	case FilterFieldSection:
		return p.Section, true
	case FilterFieldSource:
		return p.Source, true
	case FilterFieldTitle:
		return p.Title, true
	case FilterFieldDocumentID:
		return p.DocumentID, true
	default:
		return "", false
	}
}

// Map returns the payload keyed by the Payload* keys.
func (p Payload) Map() map[string]any {
	return map[string]any{
		PayloadKeyContent:       p.Content,
		PayloadKeyTitle:         p.Title,
		PayloadKeySource:        p.Source,
		PayloadKeyModule:        p.Module,
		PayloadKeySection:       p.Section,
		PayloadKeyChunkIndex:    p.ChunkIndex,
		PayloadKeyTotalChunks:   p.TotalChunks,
		PayloadKeyModelVersion:  p.ModelVersion,
		PayloadKeyDocumentID:    p.DocumentID,
		PayloadKeySchemaVersion: p.SchemaVersion,
	}
}

// PayloadFromMap is the inverse of Map. Numbers may arrive as any
// numeric type, as produced by JSON decoders.
func PayloadFromMap(m map[string]any) Payload {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	num := func(k string) int {
		switch v := m[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case float32:
			return int(v)
		}
		return 0
	}
	return Payload{
		Content:       str(PayloadKeyContent),
		Title:         str(PayloadKeyTitle),
		Source:        str(PayloadKeySource),
		Module:        str(PayloadKeyModule),
		Section:       str(PayloadKeySection),
		ChunkIndex:    num(PayloadKeyChunkIndex),
		TotalChunks:   num(PayloadKeyTotalChunks),
		ModelVersion:  str(PayloadKeyModelVersion),
		DocumentID:    str(PayloadKeyDocumentID),
		SchemaVersion: num(PayloadKeySchemaVersion),
	}
}

// IndexEntry is one vector and its payload.
type IndexEntry struct {
	// ID is derived from (document ID, ordinal) and stable across runs.
	ID      string
	Vector  []float32
	Payload Payload
}
