package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/retry"
)

// fastRetry keeps backoff short in tests.
var fastRetry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

// vocabulary gives the mock embedder one dimension per word.
var vocabulary = []string{"ros", "node", "topic", "gazebo", "simulation", "python", "launch", "robot"}

// mockEmbedding embeds text as word counts over vocabulary.
type mockEmbedding struct {
	mu       sync.Mutex
	calls    int
	batches  [][]string
	maxBatch int
	errs     []error // returned in order, one per call, before succeeding
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.batches = append(m.batches, append([]string(nil), texts...))
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = wordVector(t)
	}
	return out, nil
}

func wordVector(text string) []float32 {
	vec := make([]float32, len(vocabulary))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;#()")
		for i, v := range vocabulary {
			if w == v || w == v+"s" {
				vec[i]++
			}
		}
	}
	return vec
}

func (m *mockEmbedding) Dimensions() int   { return len(vocabulary) }
func (m *mockEmbedding) ModelName() string { return "mock-embed" }
func (m *mockEmbedding) MaxBatchSize() int {
	if m.maxBatch == 0 {
		return 16
	}
	return m.maxBatch
}
func (m *mockEmbedding) Ping(context.Context) error { return nil }
func (m *mockEmbedding) Close() error               { return nil }

func (m *mockEmbedding) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLM records requests and replies with a fixed answer.
type mockLLM struct {
	mu       sync.Mutex
	calls    int
	reply    string
	errs     []error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	m.opts = opts
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// countingGenerator counts Generate calls.
type countingGenerator struct {
	calls int
	text  string
	err   error
	last  *GenerationRequest
}

func (g *countingGenerator) Generate(_ context.Context, req *GenerationRequest) (string, error) {
	g.calls++
	g.last = req
	return g.text, g.err
}

// mockSource serves documents from a map keyed by source path.
type mockSource struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	loadErr error
}

func newMockSource(docs ...domain.Document) *mockSource {
	s := &mockSource{docs: make(map[string]domain.Document)}
	for _, d := range docs {
		s.docs[d.SourcePath] = d
	}
	return s
}

func (s *mockSource) Load(context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *mockSource) LoadPath(_ context.Context, p string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[p]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *mockSource) Root() string { return "mock://docs" }

func (s *mockSource) put(d domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.SourcePath] = d
}

func (s *mockSource) remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, p)
}

// mockPromptStore returns overrides from a map.
type mockPromptStore map[string]string

func (m mockPromptStore) Load(name string) (string, error) {
	if t, ok := m[name]; ok {
		return t, nil
	}
	return "", domain.ErrNotFound
}

func (m mockPromptStore) Reload() {}
