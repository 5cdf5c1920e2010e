package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory brute-force vector index.
type VectorIndex struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	cfg     domain.CollectionConfig
	entries map[string]domain.IndexEntry
	byDoc   map[string]map[string]struct{}
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection or verifies an existing one.
func (v *VectorIndex) EnsureCollection(_ context.Context, cfg domain.CollectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.collections[cfg.Name]; ok {
		return c.cfg.CheckCompatible(cfg)
	}
	v.collections[cfg.Name] = &collection{
		cfg:     cfg,
		entries: make(map[string]domain.IndexEntry),
		byDoc:   make(map[string]map[string]struct{}),
	}
	return nil
}

// CollectionInfo returns the collection config and entry count.
func (v *VectorIndex) CollectionInfo(_ context.Context, name string) (*domain.CollectionInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.collections[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.CollectionInfo{Config: c.cfg, Entries: len(c.entries)}, nil
}

// ReplaceDocument upserts entries then drops the document's stale entries.
func (v *VectorIndex) ReplaceDocument(ctx context.Context, name, documentID string, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[name]
	if !ok {
		return domain.ErrNotFound
	}
	if err := vectors.CheckEntries(c.cfg, documentID, entries); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e.Vector = append([]float32(nil), e.Vector...)
		c.entries[e.ID] = e
		keep[e.ID] = struct{}{}
	}
	for id := range c.byDoc[documentID] {
		if _, ok := keep[id]; !ok {
			delete(c.entries, id)
		}
	}
	if len(keep) == 0 {
		delete(c.byDoc, documentID)
	} else {
		c.byDoc[documentID] = keep
	}
	return nil
}

// DeleteDocument removes every entry belonging to documentID.
func (v *VectorIndex) DeleteDocument(ctx context.Context, name, documentID string) error {
	return v.ReplaceDocument(ctx, name, documentID, nil)
}

// Search scores every entry that passes the filter.
func (v *VectorIndex) Search(ctx context.Context, name string, query []float32, limit int, filter *domain.MetadataFilter) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.collections[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := vectors.CheckQuery(c.cfg, query); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0)
	for id, e := range c.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filter.Matches(e.Payload) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			EntryID: id,
			Payload: e.Payload,
			Score:   vectors.Score(c.cfg.Metric, query, e.Vector),
		})
	}
	return vectors.Rank(hits, limit), nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
