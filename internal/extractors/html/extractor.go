// Package html extracts the readable text of HTML pages.
package html

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Extract reads the page as one text unit. The <title>, when present and not
// repeated in the body, becomes the first line.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	raw := string(data)
	content := Strip(raw)
	if title := Title(raw); title != "" && !strings.HasPrefix(content, title) {
		content = strings.TrimSpace(title + "\n\n" + content)
	}
	if content == "" {
		return nil, nil
	}
	return []domain.TextUnit{{
		Content:  content,
		Metadata: domain.Metadata{Source: filepath.Base(path), Type: domain.UnitTypeText},
	}}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	comments          = regexp.MustCompile(`(?s)<!--.*?-->`)
	cellClose         = regexp.MustCompile(`(?i)</t[dh]>\s*<t[dh][^>]*>`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	breaks            = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// Title returns the decoded <title> text, or "".
func Title(content string) string {
	m := titleTag.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(m[1])), " ")
}

// Strip removes markup and returns the readable text, one block per line.
// Table cells on a row are joined with " | ".
func Strip(content string) string {
	content = strings.ReplaceAll(content, "\u00a0", " ")
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, titleTag, svgTag, comments} {
		content = re.ReplaceAllString(content, "")
	}

	content = cellClose.ReplaceAllString(content, " | ")
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = breaks.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, " ", " ")
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	result := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
