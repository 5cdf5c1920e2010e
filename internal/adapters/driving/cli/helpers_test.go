package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/ai"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/config/file"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/core/services"
)

type mockQueryService struct {
	answer *domain.Answer
	err    error
	last   domain.Query
}

func (m *mockQueryService) Ask(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockRetriever struct {
	results  []domain.RetrievalResult
	err      error
	last     domain.Query
	lastOpts driving.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, q domain.Query, opts driving.RetrieveOptions) ([]domain.RetrievalResult, error) {
	m.last = q
	m.lastOpts = opts
	return m.results, m.err
}

type mockIngestion struct {
	mu        sync.Mutex
	report    *domain.IngestReport
	err       error
	pathsErr  error
	allOpts   []driving.IngestOptions
	pathCalls [][]string
	info      *domain.CollectionInfo
	infoErr   error
	records   []domain.DocumentRecord
}

func (m *mockIngestion) IngestAll(_ context.Context, opts driving.IngestOptions) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allOpts = append(m.allOpts, opts)
	return m.report, m.err
}

func (m *mockIngestion) IngestPaths(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pathCalls = append(m.pathCalls, paths)
	if m.pathsErr != nil {
		return nil, m.pathsErr
	}
	return m.report, m.err
}

func (m *mockIngestion) Collection(context.Context) (*domain.CollectionInfo, error) {
	return m.info, m.infoErr
}

func (m *mockIngestion) Documents(context.Context) ([]domain.DocumentRecord, error) {
	return m.records, nil
}

func (m *mockIngestion) paths() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.pathCalls...)
}

// mockWatcher reports each batch in changes once, then returns.
type mockWatcher struct {
	changes [][]string
}

func (m *mockWatcher) Watch(_ context.Context, onChange func(paths []string)) error {
	for _, c := range m.changes {
		onChange(c)
	}
	return nil
}

type mockChecker struct {
	results []ai.CheckResult
}

func (m *mockChecker) Check(context.Context, *domain.AppSettings) []ai.CheckResult {
	return m.results
}

type testServices struct {
	query     *mockQueryService
	retriever *mockRetriever
	ingest    *mockIngestion
	watcher   *mockWatcher
	checker   *mockChecker
	settings  *services.SettingsService
}

// setupTestServices installs mocks behind every command and a settings
// service backed by a temporary config file. Everything is restored when
// the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	store, err := file.NewConfigStoreAt(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	ts := &testServices{
		query: &mockQueryService{answer: &domain.Answer{
			Text:    "A topic is a named bus over which nodes exchange messages.",
			Sources: []domain.Source{{Title: "Topics", SourcePath: "ros2/topics.md", Section: "Publishing"}},
			Path:    []domain.QueryState{domain.QueryStateDone},
		}},
		retriever: &mockRetriever{results: []domain.RetrievalResult{{
			Score: 0.82,
			Payload: domain.Payload{
				Content:     "Nodes publish messages on a topic.",
				Title:       "Topics",
				Source:      "ros2/topics.md",
				Module:      "ros2",
				Section:     "Publishing",
				ChunkIndex:  0,
				TotalChunks: 3,
			},
		}}},
		ingest:   &mockIngestion{report: &domain.IngestReport{Documents: 2, Chunks: 7}},
		watcher:  &mockWatcher{},
		checker:  &mockChecker{},
		settings: services.NewSettingsService(store),
	}

	settingsService = ts.settings
	queryService = ts.query
	retriever = ts.retriever
	ingestService = ts.ingest
	sourceWatcher = ts.watcher
	checker = ts.checker

	t.Cleanup(func() {
		settingsService = nil
		queryService = nil
		retriever = nil
		ingestService = nil
		sourceWatcher = nil
		checker = nil
		resetFlags(rootCmd)
	})
	return ts
}

// resetFlags restores flag defaults, which otherwise carry over between
// executions of the shared command tree.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
