package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/ai"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/config/file"
	"github.com/custodia-labs/groundwork/internal/connectors/filesystem"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/core/services"
	"github.com/custodia-labs/groundwork/internal/logger"
	"github.com/custodia-labs/groundwork/internal/normalisers"
	"github.com/custodia-labs/groundwork/internal/postprocessors"
)

// Services used by commands. Commands wire the ones they need on first
// use; tests assign them directly.
var (
	settingsService driving.SettingsService
	queryService    driving.QueryService
	retriever       driving.Retriever
	ingestService   driving.IngestionService
	sourceWatcher   changeWatcher
	checker         settingsChecker
)

// configDir holds prompts.toml. It follows the config file location.
var configDir string

// closers run after the command finishes, in reverse order.
var closers []func() error

type changeWatcher interface {
	Watch(ctx context.Context, onChange func(paths []string)) error
}

type settingsChecker interface {
	Check(ctx context.Context, settings *domain.AppSettings) []ai.CheckResult
}

// need selects which services a command wires.
type need int

const (
	// needRetrieval wires the retriever.
	needRetrieval need = 1 << iota
	// needAnswers wires the query service and its LLM.
	needAnswers
	// needCatalog wires the ingestion service. The document source is
	// optional; without it the service is read-only.
	needCatalog
	// needSource wires the ingestion service with a document source
	// and the source watcher. Source errors are reported.
	needSource
)

func wired(n need) bool {
	switch {
	case n&needRetrieval != 0 && retriever == nil:
		return false
	case n&needAnswers != 0 && queryService == nil:
		return false
	case n&(needCatalog|needSource) != 0 && ingestService == nil:
		return false
	case n&needSource != 0 && sourceWatcher == nil:
		return false
	}
	return true
}

func wireSettings() error {
	if settingsService != nil {
		return nil
	}
	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.NewConfigStoreAt(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configDir = filepath.Dir(store.Path())
	settingsService = services.NewSettingsService(store)
	return nil
}

// wire builds the services named by n from the current settings.
// Services that are already set are left alone.
func wire(n need) error {
	if err := wireSettings(); err != nil {
		return err
	}
	if wired(n) {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}

	storage, err := ai.CreateStorage(settings.Index, settings.Provider)
	if err != nil {
		return err
	}
	closers = append(closers, storage.Close)
	logger.Debug("Opened %s index %q", settings.Index.Backend, settings.Index.Collection)

	var embedder *services.Embedder
	if n&(needRetrieval|needAnswers|needSource) != 0 {
		svc, err := ai.CreateEmbeddingService(&settings.Embedding, settings.Provider.Timeout)
		if err != nil {
			return err
		}
		closers = append(closers, svc.Close)
		policy := ai.RetryPolicy(settings.Provider, settings.Embedding.Provider.String(), settings.Embedding.RequestsPerSecond)
		embedder = services.NewEmbedder(svc, settings.Embedding.ModelVersion(), settings.Embedding.BatchSize, policy)

		r := services.NewRetriever(embedder, storage.VectorIndex, settings.Index.Collection, settings.Retrieval)
		if retriever == nil {
			retriever = r
		}
	}

	if n&(needCatalog|needSource) != 0 && ingestService == nil {
		if err := wireIngestion(settings, storage, embedder, n&needSource != 0); err != nil {
			return err
		}
	}

	if n&needAnswers != 0 && queryService == nil {
		if err := wireAnswers(settings, storage); err != nil {
			return err
		}
	}
	return nil
}

func wireIngestion(settings *domain.AppSettings, storage *ai.Storage, embedder *services.Embedder, required bool) error {
	cfg := services.IngestConfig{
		Collection:  settings.Index.Collection,
		Metric:      settings.Index.Metric,
		Workers:     settings.Ingest.Workers,
		Fingerprint: fmt.Sprintf("chunker:%d/%d", settings.Chunking.TargetSize, settings.Chunking.Overlap),
	}

	source, err := filesystem.New(settings.Ingest.SourceDir, normalisers.Default())
	if err != nil {
		if required {
			return err
		}
		logger.Warn("Ingestion disabled: %v", err)
		ingestService = services.NewIngestionService(nil, nil, embedder, storage.VectorIndex, storage.DocumentStore, cfg)
		return nil
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		return err
	}
	ingestService = services.NewIngestionService(source, pipeline, embedder, storage.VectorIndex, storage.DocumentStore, cfg)
	if sourceWatcher == nil {
		sourceWatcher = filesystem.NewWatcher(source, filesystem.DefaultDebounce)
	}
	return nil
}

func wireAnswers(settings *domain.AppSettings, storage *ai.Storage) error {
	llm, err := ai.CreateLLMService(&settings.LLM, settings.Provider.Timeout)
	if err != nil {
		return err
	}
	closers = append(closers, llm.Close)

	prompts, err := file.NewPromptStore(configDir)
	if err != nil {
		return err
	}
	generator := services.NewAnswerGenerator(llm, settings.LLM, ai.RetryPolicy(settings.Provider, settings.LLM.Provider.String(), 0))
	queryService = services.NewQueryService(retriever, services.NewPromptBuilder(prompts), generator, storage.DocumentStore)
	return nil
}

func closeServices() {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Closing services: %v", err)
	}
}
