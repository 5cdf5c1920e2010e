package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex. Each collection owns two
// buckets: entries keyed by entry ID, and a per-document list of entry IDs.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

type storedCollection struct {
	Name         string `json:"name"`
	Dimension    int    `json:"dimension"`
	Metric       string `json:"metric"`
	ModelVersion string `json:"model_version"`
}

func entriesBucket(collection string) []byte { return []byte("entries/" + collection) }
func docsBucket(collection string) []byte    { return []byte("docs/" + collection) }

func (v *vectorIndex) EnsureCollection(_ context.Context, cfg domain.CollectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return v.store.db.Update(func(tx *bbolt.Tx) error {
		existing, err := readCollection(tx, cfg.Name)
		if err == nil {
			return existing.CheckCompatible(cfg)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		data, err := json.Marshal(storedCollection{
			Name:         cfg.Name,
			Dimension:    cfg.Dimension,
			Metric:       string(cfg.Metric),
			ModelVersion: cfg.ModelVersion,
		})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketCollections).Put([]byte(cfg.Name), data); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(entriesBucket(cfg.Name)); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(docsBucket(cfg.Name))
		return err
	})
}

func (v *vectorIndex) CollectionInfo(_ context.Context, name string) (*domain.CollectionInfo, error) {
	var info domain.CollectionInfo
	err := v.store.db.View(func(tx *bbolt.Tx) error {
		cfg, err := readCollection(tx, name)
		if err != nil {
			return err
		}
		info.Config = *cfg
		info.Entries = tx.Bucket(entriesBucket(name)).Stats().KeyN
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (v *vectorIndex) ReplaceDocument(ctx context.Context, collection, documentID string, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.store.db.Update(func(tx *bbolt.Tx) error {
		cfg, err := readCollection(tx, collection)
		if err != nil {
			return err
		}
		if err := vectors.CheckEntries(*cfg, documentID, entries); err != nil {
			return err
		}

		eb := tx.Bucket(entriesBucket(collection))
		docs := tx.Bucket(docsBucket(collection))

		ids := make([]string, 0, len(entries))
		keep := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			data, err := encodeEntry(e)
			if err != nil {
				return err
			}
			if err := eb.Put([]byte(e.ID), data); err != nil {
				return err
			}
			ids = append(ids, e.ID)
			keep[e.ID] = struct{}{}
		}

		previous, err := documentEntries(docs, documentID)
		if err != nil {
			return err
		}
		for _, id := range previous {
			if _, ok := keep[id]; ok {
				continue
			}
			if err := eb.Delete([]byte(id)); err != nil {
				return err
			}
		}

		if len(ids) == 0 {
			return docs.Delete([]byte(documentID))
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return docs.Put([]byte(documentID), data)
	})
}

func (v *vectorIndex) DeleteDocument(ctx context.Context, collection, documentID string) error {
	return v.ReplaceDocument(ctx, collection, documentID, nil)
}

func (v *vectorIndex) Search(ctx context.Context, collection string, query []float32, limit int, filter *domain.MetadataFilter) ([]driven.VectorHit, error) {
	hits := make([]driven.VectorHit, 0)
	err := v.store.db.View(func(tx *bbolt.Tx) error {
		cfg, err := readCollection(tx, collection)
		if err != nil {
			return err
		}
		if err := vectors.CheckQuery(*cfg, query); err != nil {
			return err
		}
		return tx.Bucket(entriesBucket(collection)).ForEach(func(k, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e storedEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			if !filter.Matches(e.Payload) {
				return nil
			}
			vec, err := vectors.Decode(e.Vector)
			if err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			hits = append(hits, driven.VectorHit{
				EntryID: string(k),
				Payload: e.Payload,
				Score:   vectors.Score(cfg.Metric, query, vec),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectors.Rank(hits, limit), nil
}

// Close closes the underlying store.
func (v *vectorIndex) Close() error {
	return v.store.Close()
}

func readCollection(tx *bbolt.Tx, name string) (*domain.CollectionConfig, error) {
	data := tx.Bucket(bucketCollections).Get([]byte(name))
	if data == nil {
		return nil, domain.ErrNotFound
	}
	var sc storedCollection
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	return &domain.CollectionConfig{
		Name:         sc.Name,
		Dimension:    sc.Dimension,
		Metric:       domain.DistanceMetric(sc.Metric),
		ModelVersion: sc.ModelVersion,
	}, nil
}

func documentEntries(b *bbolt.Bucket, documentID string) ([]string, error) {
	data := b.Get([]byte(documentID))
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("document %s entry list: %w", documentID, err)
	}
	return ids, nil
}
