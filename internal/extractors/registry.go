package extractors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/extractors/docx"
	"github.com/custodia-labs/docchat/internal/extractors/email"
	"github.com/custodia-labs/docchat/internal/extractors/html"
	"github.com/custodia-labs/docchat/internal/extractors/markdown"
	"github.com/custodia-labs/docchat/internal/extractors/pdf"
	"github.com/custodia-labs/docchat/internal/extractors/plaintext"
	"github.com/custodia-labs/docchat/internal/extractors/table"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file extensions to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]driven.Extractor)}
}

// Default returns a registry with every built-in extractor.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(table.New())
	r.Register(html.New())
	r.Register(email.New())
	return r
}

// Register adds e for each of its extensions. Later registrations win.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.extractors[strings.ToLower(ext)] = e
	}
}

// For returns the extractor for path.
func (r *Registry) For(path string) (driven.Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	e, ok := r.extractors[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Base(path))
	}
	return e, nil
}

// Supports reports whether some extractor handles path.
func (r *Registry) Supports(path string) bool {
	_, err := r.For(path)
	return err == nil
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
