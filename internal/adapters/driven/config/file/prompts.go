package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts
var promptFS embed.FS

// defaultPrompts maps prompt names to the embedded templates.
var defaultPrompts = loadDefaults()

// placeholderCounts is the number of %s verbs each formatted template must
// keep. Other verbs are rejected; %% is a literal percent sign.
var placeholderCounts = map[string]int{
	driven.PromptAnswerSystem: 1,
}

var errBadPlaceholders = errors.New("wrong number of placeholders")

func loadDefaults() map[string]string {
	out := make(map[string]string)
	entries, _ := fs.ReadDir(promptFS, "prompts")
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".txt")
		if !ok {
			continue
		}
		data, _ := promptFS.ReadFile("prompts/" + e.Name())
		out[name] = strings.TrimSpace(string(data))
	}
	return out
}

// PromptStore serves prompt templates from text files the user can edit.
// Missing or broken files fall back to the built-in templates. The directory
// is seeded on the first Load, never by the constructor.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store over promptDir, or ~/.pdfchat/prompts when empty.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".pdfchat", "prompts")
	}
	return &PromptStore{dir: promptDir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named template.
func (s *PromptStore) Load(name string) (string, error) {
	s.seed.Do(func() { s.seedErr = s.seedDir() })

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		def, known := defaultPrompts[name]
		if !known {
			return "", fmt.Errorf("load prompt %q: %w", name, errors.Join(err, s.seedErr))
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompt %q: %v, using default", name, err)
		}
		return def, nil
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		prompt = existing
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if want, ok := placeholderCounts[name]; ok {
		if n, valid := formatVerbs(prompt); !valid || n != want {
			return "", errBadPlaceholders
		}
	}
	return prompt, nil
}

// formatVerbs counts %s verbs. It reports false for any other verb or a
// trailing %.
func formatVerbs(prompt string) (int, bool) {
	count := 0
	for i := 0; i < len(prompt); i++ {
		if prompt[i] != '%' {
			continue
		}
		if i+1 == len(prompt) {
			return count, false
		}
		i++
		switch prompt[i] {
		case '%':
		case 's':
			count++
		default:
			return count, false
		}
	}
	return count, true
}

// seedDir writes every embedded file that is not on disk yet.
func (s *PromptStore) seedDir() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := fs.ReadDir(promptFS, "prompts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := promptFS.ReadFile("prompts/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("seed %s: %w", e.Name(), err)
		}
	}
	return nil
}
