// Package bolt keeps the manifest and a brute-force vector index in a
// single bbolt file. Every write is one bbolt transaction, so readers
// see a document's old entries or its new ones.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

var (
	bucketCollections = []byte("collections")
	bucketDocuments   = []byte("documents")
)

// Store is a bbolt database serving both the manifest and the vector index.
type Store struct {
	db        *bbolt.DB
	closeOnce sync.Once
	closeErr  error
}

// NewStore opens or creates the database file at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCollections, bucketDocuments} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Later calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// DocumentStore returns the manifest backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{db: s.db}
}

// VectorIndex returns the vector index backed by this store.
// Closing it closes the store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// documentStore implements driven.DocumentStore.
type documentStore struct {
	db *bbolt.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) SaveDocument(_ context.Context, rec *domain.DocumentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(rec.ID), data)
	})
}

func (s *documentStore) GetDocument(_ context.Context, id string) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *documentStore) ListDocuments(_ context.Context) ([]domain.DocumentRecord, error) {
	docs := make([]domain.DocumentRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(_, v []byte) error {
			var rec domain.DocumentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			docs = append(docs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].SourcePath < docs[j].SourcePath
	})
	return docs, nil
}

func (s *documentStore) DeleteDocument(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(id))
	})
}

func (s *documentStore) ListModules(ctx context.Context) ([]string, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	modules := make([]string, 0)
	for _, d := range docs {
		if _, ok := seen[d.Module]; ok || d.Module == "" {
			continue
		}
		seen[d.Module] = struct{}{}
		modules = append(modules, d.Module)
	}
	sort.Strings(modules)
	return modules, nil
}

// storedEntry is the bucket value for one index entry.
type storedEntry struct {
	DocumentID string         `json:"document_id"`
	Vector     []byte         `json:"vector"`
	Payload    domain.Payload `json:"payload"`
}

func encodeEntry(e domain.IndexEntry) ([]byte, error) {
	return json.Marshal(storedEntry{
		DocumentID: e.Payload.DocumentID,
		Vector:     vectors.Encode(e.Vector),
		Payload:    e.Payload,
	})
}
