package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, title, source_path, module, content_hash, chunk_count, model_version, ingested_at`

// SaveDocument stores or replaces a record.
func (s *documentStore) SaveDocument(ctx context.Context, rec *domain.DocumentRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source_path = excluded.source_path,
			module = excluded.module,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			model_version = excluded.model_version,
			ingested_at = excluded.ingested_at
	`, rec.ID, rec.Title, rec.SourcePath, rec.Module, rec.ContentHash,
		rec.ChunkCount, rec.ModelVersion, formatTime(rec.IngestedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a record by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// ListDocuments returns all records ordered by source path.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY source_path, id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *rec)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a record.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListModules returns the distinct non-empty modules, sorted.
func (s *documentStore) ListModules(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT DISTINCT module FROM documents WHERE module != '' ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("querying modules: %w", err)
	}
	defer rows.Close()

	modules := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var ingestedAt string
	if err := row.Scan(&rec.ID, &rec.Title, &rec.SourcePath, &rec.Module, &rec.ContentHash,
		&rec.ChunkCount, &rec.ModelVersion, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	rec.IngestedAt = parseTime(ingestedAt)
	return &rec, nil
}
