// Package pdf extracts PDF text page by page using github.com/ledongthuc/pdf.
// The library exposes no table structure, so tables arrive as page text.
package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract emits one text unit per paragraph, tagged with its page. Pages
// that fail to decode are skipped; a file where every page fails is an error.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	name := filepath.Base(path)

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var (
		units  []domain.TextUnit
		failed int
	)
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(reader, i)
		if err != nil {
			logger.Warn("pdf %s page %d: %v", name, i, err)
			failed++
			continue
		}
		for _, para := range SplitParagraphs(text) {
			units = append(units, domain.TextUnit{
				Content:  para,
				Metadata: domain.Metadata{Source: name, Page: i, Type: domain.UnitTypeText},
			})
		}
	}
	if total > 0 && failed == total {
		return nil, fmt.Errorf("%s: no readable pages", name)
	}
	return units, nil
}

// pageText returns the plain text of page i. The reader panics on some
// malformed content streams, so a panic becomes an error.
func pageText(reader *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode: %v", r)
		}
	}()
	page := reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// SplitParagraphs splits text on blank lines and drops empty parts.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
