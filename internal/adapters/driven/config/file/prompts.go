package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// defaults holds the built-in prompts and the README copied next to them.
//
//go:embed defaults
var defaults embed.FS

const defaultsDir = "defaults"

// PromptStore serves prompt templates from <dir>/<name>.txt.
//
// The directory is seeded with the built-in defaults on first use, never
// overwriting a user's file. Each Load stats the file, so an edit is picked
// up by the next request of a long-running session. A missing file or one
// whose %s count differs from the default falls back to the default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

// cachedPrompt is valid while the file keeps the same modification time and size.
type cachedPrompt struct {
	text    string
	modTime time.Time
	size    int64
}

// NewPromptStore creates a prompt store rooted at promptDir.
// If promptDir is empty, the prompts directory under DefaultDir is used.
// No I/O happens until the first Load.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get config directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}
	return &PromptStore{
		dir:   promptDir,
		cache: make(map[string]cachedPrompt),
	}, nil
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: prompt name %q", domain.ErrInvalidInput, name)
	}
	s.seedOnce.Do(s.seed)

	def, hasDefault := defaultPrompt(name)
	if s.seedErr != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.seedErr)
	}

	file := filepath.Join(s.dir, name+".txt")
	info, err := os.Stat(file)
	if err != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if hasDefault {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))

	if hasDefault {
		if want, got := countPlaceholders(def), countPlaceholders(text); want != got {
			// Cached as the default so the warning shows once per edit.
			logger.Warn("Ignoring %s: expected %d %%s placeholder(s), found %d", file, want, got)
			text = def
		}
	}

	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime(), size: info.Size()}
	return text, nil
}

// Reload drops every cached prompt.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// seed creates the directory and copies in any missing default files.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	entries, err := fs.ReadDir(defaults, defaultsDir)
	if err != nil {
		s.seedErr = err
		return
	}
	for _, entry := range entries {
		data, err := defaults.ReadFile(path.Join(defaultsDir, entry.Name()))
		if err != nil {
			s.seedErr = err
			return
		}
		if err := writeIfMissing(filepath.Join(s.dir, entry.Name()), data); err != nil {
			s.seedErr = fmt.Errorf("create default %s: %w", entry.Name(), err)
			return
		}
	}
}

func writeIfMissing(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// defaultPrompt returns the built-in template for name.
func defaultPrompt(name string) (string, bool) {
	data, err := defaults.ReadFile(path.Join(defaultsDir, name+".txt"))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// countPlaceholders counts %s verbs, ignoring escaped "%%".
func countPlaceholders(prompt string) int {
	return strings.Count(strings.ReplaceAll(prompt, "%%", ""), "%s")
}
