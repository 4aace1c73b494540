// Package cleaner normalises whitespace in extracted units and drops
// fragments that are unlikely to be prose (page furniture, number runs).
package cleaner

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultAlphaRatio is the minimum share of letters in a kept text unit.
const DefaultAlphaRatio = 0.5

// DefaultMinLength is the minimum trimmed length of a kept text unit.
const DefaultMinLength = 10

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Processor cleans unit content. Tables keep their row breaks and are
// never dropped.
type Processor struct {
	alphaRatio float64
	minLength  int
}

// Option configures the cleaner.
type Option func(*Processor)

// WithAlphaRatio sets the minimum letter ratio for text units.
func WithAlphaRatio(ratio float64) Option {
	return func(p *Processor) {
		if ratio >= 0 && ratio <= 1 {
			p.alphaRatio = ratio
		}
	}
}

// WithMinLength sets the minimum trimmed length for text units.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

// New creates a cleaner with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		alphaRatio: DefaultAlphaRatio,
		minLength:  DefaultMinLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process cleans every unit and drops text that does not look like prose.
func (p *Processor) Process(_ context.Context, units []domain.TextUnit) ([]domain.TextUnit, error) {
	out := make([]domain.TextUnit, 0, len(units))
	for _, u := range units {
		content := Clean(u.Content)
		if content == "" {
			continue
		}
		if u.Metadata.Type.Splittable() && !p.IsLikelyText(content) {
			continue
		}
		out = append(out, domain.TextUnit{Content: content, Metadata: u.Metadata})
	}
	return out, nil
}

// IsLikelyText reports whether s is long enough and mostly letters.
func (p *Processor) IsLikelyText(s string) bool {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 || n < p.minLength {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(n) >= p.alphaRatio
}

// Clean normalises line endings, strips control characters, collapses runs
// of horizontal whitespace, trims every line and keeps at most one blank
// line between paragraphs.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
