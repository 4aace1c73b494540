// Package markdown extracts Markdown files as text with the syntax stripped.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var (
	fence        = regexp.MustCompile("(?m)^\\s*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	blockquote   = regexp.MustCompile(`(?m)^\s*>\s?`)
	rule         = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	tableRule    = regexp.MustCompile(`(?m)^\s*\|?(\s*:?-{3,}:?\s*\|)+\s*:?-*:?\s*$`)
	htmlComment  = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract reads the file as one text unit with Markdown formatting removed.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	content := Strip(string(data))
	if content == "" {
		return nil, nil
	}
	return []domain.TextUnit{{
		Content:  content,
		Metadata: domain.Metadata{Source: filepath.Base(path), Type: domain.UnitTypeText},
	}}, nil
}

// Strip removes common Markdown formatting. Code keeps its text; fences,
// markers and link targets are dropped.
func Strip(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = htmlComment.ReplaceAllString(content, "")
	content = fence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
