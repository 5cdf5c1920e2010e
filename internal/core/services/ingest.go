package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/identity"
	"github.com/custodia-labs/groundwork/internal/logger"
)

var errNoSource = domain.NewInvalidInput("ingest.source_dir", "no document source configured")

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestConfig fixes the target collection and worker count.
type IngestConfig struct {
	Collection string
	Metric     domain.DistanceMetric
	Workers    int

	// Fingerprint identifies the chunking configuration. A change forces
	// re-ingestion even with ChangedOnly.
	Fingerprint string
}

// IngestionService loads documents, chunks and embeds them, and replaces
// their entries in the index.
type IngestionService struct {
	source   driven.DocumentSource
	pipeline driven.PostProcessorPipeline
	embedder *Embedder
	index    driven.VectorIndex
	docs     driven.DocumentStore
	cfg      IngestConfig
	now      func() time.Time

	ensureMu sync.Mutex
	ensured  *domain.CollectionConfig
}

// NewIngestionService creates an ingestion service. A nil source gives a
// read-only service: Collection and Documents work, ingest calls fail.
func NewIngestionService(
	source driven.DocumentSource,
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
	index driven.VectorIndex,
	docs driven.DocumentStore,
	cfg IngestConfig,
) *IngestionService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Metric == "" {
		cfg.Metric = domain.MetricCosine
	}
	return &IngestionService{
		source:   source,
		pipeline: pipeline,
		embedder: embedder,
		index:    index,
		docs:     docs,
		cfg:      cfg,
		now:      time.Now,
	}
}

// IngestAll re-ingests every document in the source and removes the ones
// that are gone. Per-document failures are collected in the report and
// joined into the returned error; every other document is still committed.
func (s *IngestionService) IngestAll(ctx context.Context, opts driving.IngestOptions) (*domain.IngestReport, error) {
	logger.Section("Ingest")
	start := time.Now()

	if s.source == nil {
		return nil, errNoSource
	}
	if _, err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	docs, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.source.Root(), err)
	}
	logger.Info("Loaded %d documents from %s", len(docs), s.source.Root())

	manifest, err := s.manifest(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{}
	if err := s.run(ctx, docs, manifest, opts, report); err != nil {
		return report, err
	}

	present := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		present[d.ID] = struct{}{}
	}
	for id, rec := range manifest {
		if _, ok := present[id]; ok {
			continue
		}
		if err := s.remove(ctx, id); err != nil {
			report.Failed = append(report.Failed, domain.DocumentFailure{SourcePath: rec.SourcePath, Err: err})
			continue
		}
		logger.Debug("Removed %s", rec.SourcePath)
		report.Removed++
	}

	return s.finish(report, start)
}

// IngestPaths re-ingests the given source paths. Paths that no longer
// exist are removed from the index.
func (s *IngestionService) IngestPaths(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	logger.Section("Ingest paths")
	start := time.Now()

	if s.source == nil {
		return nil, errNoSource
	}
	if _, err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	report := &domain.IngestReport{}
	var docs []domain.Document
	for _, p := range paths {
		doc, err := s.source.LoadPath(ctx, p)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := s.remove(ctx, identity.DocumentID(p)); err != nil {
				report.Failed = append(report.Failed, domain.DocumentFailure{SourcePath: p, Err: err})
				continue
			}
			report.Removed++
		case err != nil:
			report.Failed = append(report.Failed, domain.DocumentFailure{SourcePath: p, Err: err})
		default:
			docs = append(docs, *doc)
		}
	}

	if err := s.run(ctx, docs, nil, driving.IngestOptions{}, report); err != nil {
		return report, err
	}
	return s.finish(report, start)
}

// Collection describes the target collection.
func (s *IngestionService) Collection(ctx context.Context) (*domain.CollectionInfo, error) {
	return s.index.CollectionInfo(ctx, s.cfg.Collection)
}

// Documents lists the ingestion manifest.
func (s *IngestionService) Documents(ctx context.Context) ([]domain.DocumentRecord, error) {
	return s.docs.ListDocuments(ctx)
}

// run ingests docs on a bounded worker pool. Only cancellation and index
// integrity violations stop the run; other failures go to the report.
func (s *IngestionService) run(
	ctx context.Context,
	docs []domain.Document,
	manifest map[string]domain.DocumentRecord,
	opts driving.IngestOptions,
	report *domain.IngestReport,
) error {
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			hash := s.contentHash(doc)
			if rec, ok := manifest[doc.ID]; ok && opts.ChangedOnly &&
				rec.ContentHash == hash && rec.ModelVersion == s.embedder.ModelVersion() {
				mu.Lock()
				report.Unchanged++
				mu.Unlock()
				s.progress(opts, &mu, &done, len(docs), doc.SourcePath)
				return nil
			}

			chunks, err := s.ingestDocument(gctx, doc, hash)
			mu.Lock()
			switch {
			case err == nil:
				report.Documents++
				report.Chunks += chunks
			case gctx.Err() != nil:
				mu.Unlock()
				return gctx.Err()
			case errors.Is(err, domain.ErrIndexIntegrity):
				mu.Unlock()
				return fmt.Errorf("%s: %w", doc.SourcePath, err)
			default:
				logger.Warn("Ingesting %s failed: %v", doc.SourcePath, err)
				report.Failed = append(report.Failed, domain.DocumentFailure{SourcePath: doc.SourcePath, Err: err})
			}
			mu.Unlock()
			s.progress(opts, &mu, &done, len(docs), doc.SourcePath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *IngestionService) progress(opts driving.IngestOptions, mu *sync.Mutex, done *int, total int, sourcePath string) {
	if opts.Progress == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	*done++
	opts.Progress(*done, total, sourcePath)
}

// ingestDocument chunks, embeds and indexes one document, then records it
// in the manifest. It returns the number of entries written.
func (s *IngestionService) ingestDocument(ctx context.Context, doc *domain.Document, hash string) (int, error) {
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		section, _ := c.Metadata[domain.PayloadKeySection].(string)
		entries[i] = domain.IndexEntry{
			ID:     identity.EntryID(doc.ID, c.Ordinal),
			Vector: vecs[i],
			Payload: domain.Payload{
				Content:       c.Text,
				Title:         doc.Title,
				Source:        doc.SourcePath,
				Module:        doc.Module(),
				Section:       section,
				ChunkIndex:    c.Ordinal,
				TotalChunks:   len(chunks),
				ModelVersion:  s.embedder.ModelVersion(),
				DocumentID:    doc.ID,
				SchemaVersion: domain.PayloadSchemaVersion,
			},
		}
	}

	if err := s.index.ReplaceDocument(ctx, s.cfg.Collection, doc.ID, entries); err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}

	rec := &domain.DocumentRecord{
		ID:           doc.ID,
		Title:        doc.Title,
		SourcePath:   doc.SourcePath,
		Module:       doc.Module(),
		ContentHash:  hash,
		ChunkCount:   len(entries),
		ModelVersion: s.embedder.ModelVersion(),
		IngestedAt:   s.now().UTC(),
	}
	if err := s.docs.SaveDocument(ctx, rec); err != nil {
		return 0, fmt.Errorf("manifest: %w", err)
	}

	logger.Debug("Indexed %s: %d chunks", doc.SourcePath, len(entries))
	return len(entries), nil
}

func (s *IngestionService) remove(ctx context.Context, documentID string) error {
	if err := s.index.DeleteDocument(ctx, s.cfg.Collection, documentID); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := s.docs.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// ensureCollection creates or verifies the collection once per service.
// An embedder without a known dimension is probed with one request.
func (s *IngestionService) ensureCollection(ctx context.Context) (*domain.CollectionConfig, error) {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.ensured != nil {
		return s.ensured, nil
	}

	dim := s.embedder.Dimensions()
	if dim <= 0 {
		vecs, err := s.embedder.Embed(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("probe embedding dimension: %w", err)
		}
		dim = len(vecs[0])
	}

	cfg := domain.CollectionConfig{
		Name:         s.cfg.Collection,
		Dimension:    dim,
		Metric:       s.cfg.Metric,
		ModelVersion: s.embedder.ModelVersion(),
	}
	if err := s.index.EnsureCollection(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Debug("Collection %s ready: dimension=%d metric=%s model=%s", cfg.Name, cfg.Dimension, cfg.Metric, cfg.ModelVersion)
	s.ensured = &cfg
	return &cfg, nil
}

func (s *IngestionService) manifest(ctx context.Context) (map[string]domain.DocumentRecord, error) {
	recs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m := make(map[string]domain.DocumentRecord, len(recs))
	for _, r := range recs {
		m[r.ID] = r
	}
	return m, nil
}

func (s *IngestionService) contentHash(doc *domain.Document) string {
	h := sha256.New()
	h.Write([]byte(s.cfg.Fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(doc.Title))
	h.Write([]byte{0})
	for _, sec := range doc.SectionHierarchy {
		h.Write([]byte(sec))
		h.Write([]byte{0})
	}
	h.Write([]byte(doc.Content))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *IngestionService) finish(report *domain.IngestReport, start time.Time) (*domain.IngestReport, error) {
	report.Duration = time.Since(start)
	logger.Info("Ingested %d documents (%d chunks), %d unchanged, %d removed, %d failed in %s",
		report.Documents, report.Chunks, report.Unchanged, report.Removed, len(report.Failed), report.Duration)

	if len(report.Failed) == 0 {
		return report, nil
	}
	return report, &domain.PartialIngestError{Failures: report.Failed}
}
