// Package filesystem loads course documents from a local directory tree
// and watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
	"github.com/custodia-labs/groundwork/internal/normalisers"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source reads every supported, non-hidden file under a root directory.
type Source struct {
	root     string
	registry *normalisers.Registry
}

// New creates a source rooted at dir. dir must exist.
func New(dir string, registry *normalisers.Registry) (*Source, error) {
	if registry == nil {
		registry = normalisers.Default()
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.NewInvalidInput("ingest.source_dir", "%v", err)
	}
	if !info.IsDir() {
		return nil, domain.NewInvalidInput("ingest.source_dir", "%s is not a directory", root)
	}
	return &Source{root: root, registry: registry}, nil
}

// Root returns the absolute source directory.
func (s *Source) Root() string {
	return s.root
}

// Supports reports whether sourcePath would be loaded by this source.
func (s *Source) Supports(sourcePath string) bool {
	if isHidden(sourcePath) {
		return false
	}
	_, ok := s.registry.For(filepath.Ext(sourcePath))
	return ok
}

// Load walks the tree in lexical order. A file that cannot be read or
// normalised fails the whole load.
func (s *Source) Load(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == s.root {
			return nil
		}

		rel, err := RelativePath(s.root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.Supports(rel) {
			logger.Debug("Skipping %s", rel)
			return nil
		}

		doc, err := s.read(ctx, p, rel)
		if err != nil {
			return err
		}
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadPath loads one document. A missing or hidden file is
// domain.ErrNotFound.
func (s *Source) LoadPath(ctx context.Context, sourcePath string) (*domain.Document, error) {
	rel, err := CleanSourcePath(sourcePath)
	if err != nil {
		return nil, err
	}
	if isHidden(rel) {
		return nil, fmt.Errorf("%w: %s is hidden", domain.ErrNotFound, rel)
	}
	if _, ok := s.registry.For(filepath.Ext(rel)); !ok {
		return nil, domain.NewInvalidInput("source_path", "%s: unsupported file type", rel)
	}

	p, err := ResolvePath(s.root, rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, domain.NewInvalidInput("source_path", "%s is a directory", rel)
	}
	return s.read(ctx, p, rel)
}

func (s *Source) read(ctx context.Context, p, rel string) (*domain.Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	raw := &domain.RawDocument{SourcePath: rel, Content: content, ModifiedAt: info.ModTime()}
	n, _ := s.registry.For(raw.Extension())
	doc, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", rel, err)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["modified_at"] = raw.ModifiedAt.UTC().Format(time.RFC3339)
	return doc, nil
}
