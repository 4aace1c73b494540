// Package plaintext extracts plain text files as a single text unit.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".txt"}
}

// Extract reads the whole file as one text unit. Blank files yield no units.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), " "))
	}

	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []domain.TextUnit{{
		Content:  content,
		Metadata: domain.Metadata{Source: filepath.Base(path), Type: domain.UnitTypeText},
	}}, nil
}
