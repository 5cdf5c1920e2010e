package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// EnsureCollection creates the collection or verifies an existing one.
func (v *vectorIndex) EnsureCollection(ctx context.Context, cfg domain.CollectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric, model_version, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, cfg.Name, cfg.Dimension, string(cfg.Metric), cfg.ModelVersion, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	existing, err := v.collection(ctx, v.store.db, cfg.Name)
	if err != nil {
		return err
	}
	return existing.CheckCompatible(cfg)
}

// CollectionInfo returns the collection config and entry count.
func (v *vectorIndex) CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	cfg, err := v.collection(ctx, v.store.db, name)
	if err != nil {
		return nil, err
	}
	var n int
	if err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE collection = ?", name).Scan(&n); err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	return &domain.CollectionInfo{Config: *cfg, Entries: n}, nil
}

// ReplaceDocument upserts entries and removes the document's stale entries
// in one transaction.
func (v *vectorIndex) ReplaceDocument(ctx context.Context, collection, documentID string, entries []domain.IndexEntry) error {
	v.store.writeMu.Lock()
	defer v.store.writeMu.Unlock()

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cfg, err := v.collection(ctx, tx, collection)
	if err != nil {
		return err
	}
	if err := vectors.CheckEntries(*cfg, documentID, entries); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (collection, id, document_id, ordinal, vector, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			ordinal = excluded.ordinal,
			vector = excluded.vector,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, e.ID, documentID,
			e.Payload.ChunkIndex, vectors.Encode(e.Vector), string(payload)); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
		keep[e.ID] = struct{}{}
	}

	stale, err := staleIDs(ctx, tx, collection, documentID, keep)
	if err != nil {
		return err
	}
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM entries WHERE collection = ? AND id = ?", collection, id); err != nil {
			return fmt.Errorf("deleting stale entry %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes every entry belonging to documentID.
func (v *vectorIndex) DeleteDocument(ctx context.Context, collection, documentID string) error {
	v.store.writeMu.Lock()
	defer v.store.writeMu.Unlock()

	if _, err := v.store.db.ExecContext(ctx,
		"DELETE FROM entries WHERE collection = ? AND document_id = ?", collection, documentID); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	return nil
}

// Search filters entries in SQL and scores the survivors.
func (v *vectorIndex) Search(ctx context.Context, collection string, query []float32, limit int, filter *domain.MetadataFilter) ([]driven.VectorHit, error) {
	cfg, err := v.collection(ctx, v.store.db, collection)
	if err != nil {
		return nil, err
	}
	if err := vectors.CheckQuery(*cfg, query); err != nil {
		return nil, err
	}

	where, args, err := filterSQL(filter)
	if err != nil {
		return nil, err
	}
	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id, vector, payload FROM entries WHERE collection = ?"+where,
		append([]any{collection}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	hits := make([]driven.VectorHit, 0)
	for rows.Next() {
		var (
			id      string
			blob    []byte
			payload string
		)
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		vec, err := vectors.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}
		hit := driven.VectorHit{EntryID: id, Score: vectors.Score(cfg.Metric, query, vec)}
		if err := json.Unmarshal([]byte(payload), &hit.Payload); err != nil {
			return nil, fmt.Errorf("entry %s: unmarshalling payload: %w", id, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectors.Rank(hits, limit), nil
}

// Close closes the underlying store.
func (v *vectorIndex) Close() error {
	return v.store.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (v *vectorIndex) collection(ctx context.Context, q querier, name string) (*domain.CollectionConfig, error) {
	var cfg domain.CollectionConfig
	var metric string
	err := q.QueryRowContext(ctx,
		"SELECT name, dimension, metric, model_version FROM collections WHERE name = ?", name).
		Scan(&cfg.Name, &cfg.Dimension, &metric, &cfg.ModelVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	cfg.Metric = domain.DistanceMetric(metric)
	return &cfg, nil
}

func staleIDs(ctx context.Context, q querier, collection, documentID string, keep map[string]struct{}) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id FROM entries WHERE collection = ? AND document_id = ?", collection, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning entry id: %w", err)
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale, rows.Err()
}

// filterSQL renders a filter as json_extract conditions over the payload.
// Field names are checked against the payload schema before use.
func filterSQL(filter *domain.MetadataFilter) (string, []any, error) {
	if filter.IsEmpty() {
		return "", nil, nil
	}
	var b strings.Builder
	var args []any
	for _, c := range filter.Clauses {
		if _, ok := (domain.Payload{}).Field(c.Field); !ok {
			return "", nil, domain.NewInvalidInput("metadata_filter", "unknown field %q", c.Field)
		}
		if len(c.Values) == 0 {
			b.WriteString(" AND 0")
			continue
		}
		fmt.Fprintf(&b, " AND json_extract(payload, '$.%s') IN (%s)",
			c.Field, strings.TrimSuffix(strings.Repeat("?,", len(c.Values)), ","))
		for _, val := range c.Values {
			args = append(args, val)
		}
	}
	return b.String(), args, nil
}
