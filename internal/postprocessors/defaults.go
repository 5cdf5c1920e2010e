package postprocessors

import (
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/postprocessors/chunker"
	"github.com/custodia-labs/groundwork/internal/postprocessors/section"
)

// DefaultProcessors is the ingestion pipeline order.
var DefaultProcessors = []string{"chunker", "section"}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("section", func(map[string]any) (driven.PostProcessor, error) {
		return section.New(), nil
	})
}

// NewDefaultPipeline builds the chunker and section annotator from
// chunking settings.
func NewDefaultPipeline(cfg domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(DefaultProcessors, map[string]map[string]any{
		"chunker": {
			"target_size": cfg.TargetSize,
			"overlap":     cfg.Overlap,
		},
	})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - target_size (int): Maximum characters per chunk (default: 1000)
//   - overlap (int): Characters repeated at the head of the next chunk (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "target_size"); ok {
		opts = append(opts, chunker.WithTargetSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
