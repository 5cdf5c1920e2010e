package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore reads prompt overrides from a TOML file of name = template
// pairs:
//
//	refusal = "The course material does not cover this."
//	answer_system = """
//	You answer questions about the course...
//	"""
//
// Names absent from the file are reported as domain.ErrNotFound, so
// callers use their built-in templates. The file is read lazily and
// cached until Reload.
type PromptStore struct {
	mu      sync.RWMutex
	path    string
	loaded  bool
	prompts map[string]string
}

// NewPromptStore creates a store for configDir/prompts.toml.
// If configDir is empty, DefaultDir is used. No I/O happens until Load.
func NewPromptStore(configDir string) (*PromptStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = dir
	}
	return &PromptStore{path: filepath.Join(configDir, "prompts.toml")}, nil
}

// Load returns the override for name.
func (s *PromptStore) Load(name string) (string, error) {
	s.mu.RLock()
	if s.loaded {
		prompt, ok := s.prompts[name]
		s.mu.RUnlock()
		return found(name, prompt, ok)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		prompts, err := readPrompts(s.path)
		if err != nil {
			return "", err
		}
		s.prompts = prompts
		s.loaded = true
	}
	prompt, ok := s.prompts[name]
	return found(name, prompt, ok)
}

// Reload discards cached prompts; the file is read again on next Load.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.prompts = nil
	s.mu.Unlock()
}

// Path returns the prompt file path.
func (s *PromptStore) Path() string {
	return s.path
}

func found(name, prompt string, ok bool) (string, error) {
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return prompt, nil
}

func readPrompts(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	prompts := make(map[string]string, len(raw))
	for name, v := range raw {
		text, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("parse %s: prompt %q is not a string", path, name)
		}
		if text = strings.TrimSpace(text); text != "" {
			prompts[name] = text
		}
	}
	return prompts, nil
}
