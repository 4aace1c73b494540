// Package chunker provides a recursive, separator-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of characters carried between chunks.
const DefaultChunkOverlap = 100

// DefaultMinChunkSize is the default minimum length of a kept chunk.
const DefaultMinChunkSize = 50

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits text units into bounded, overlapping chunks.
// Table units are passed through whole. Lengths are counted in runes.
type Processor struct {
	chunkSize    int
	overlap      int
	minChunkSize int
	separators   []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the length below which trimmed chunks are dropped.
func WithMinChunkSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.minChunkSize = size
		}
	}
}

// WithSeparators sets the priority-ordered separators.
// End the list with "" to allow splitting at any character.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = append([]string(nil), separators...)
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultChunkOverlap,
		minChunkSize: DefaultMinChunkSize,
		separators:   DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process chunks the units of one document.
func (p *Processor) Process(_ context.Context, units []domain.TextUnit) ([]domain.TextUnit, error) {
	return p.SplitAll(units), nil
}

// SplitAll chunks the units of one source document in order.
// Empty units are dropped. Text chunk ids run per source across units,
// so they stay unique within the source; tables keep chunk id 1.
func (p *Processor) SplitAll(units []domain.TextUnit) []domain.TextUnit {
	var out []domain.TextUnit
	next := make(map[string]int)

	for _, u := range units {
		if u.IsEmpty() {
			continue
		}
		if !u.Metadata.Type.Splittable() {
			out = append(out, p.Split(u)...)
			continue
		}
		for _, c := range p.Split(u) {
			next[c.Metadata.Source]++
			c.Metadata.ChunkID = next[c.Metadata.Source]
			out = append(out, c)
		}
	}
	return out
}

// Split chunks a single unit. A table yields exactly one chunk with id 1.
// Text yields chunks numbered from 1 in order.
func (p *Processor) Split(u domain.TextUnit) []domain.TextUnit {
	if !u.Metadata.Type.Splittable() {
		meta := u.Metadata
		meta.ChunkID = 1
		return []domain.TextUnit{{Content: strings.TrimSpace(u.Content), Metadata: meta}}
	}

	var chunks []domain.TextUnit
	for _, piece := range p.splitText(u.Content, p.separators) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < p.minChunkSize || piece == "" {
			continue
		}
		meta := u.Metadata
		meta.ChunkID = len(chunks) + 1
		chunks = append(chunks, domain.TextUnit{Content: piece, Metadata: meta})
	}
	return chunks
}

// splitText splits on the first separator present in text and merges the
// pieces back up to the chunk size. Pieces still too large are split again
// with the remaining, lower-priority separators.
func (p *Processor) splitText(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var final, fits []string
	for _, piece := range splitKeep(text, sep) {
		if utf8.RuneCountInString(piece) <= p.chunkSize {
			fits = append(fits, piece)
			continue
		}
		if len(fits) > 0 {
			final = append(final, p.merge(fits)...)
			fits = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, p.splitText(piece, rest)...)
		}
	}
	if len(fits) > 0 {
		final = append(final, p.merge(fits)...)
	}
	return final
}

// merge joins consecutive pieces into chunks of at most chunkSize runes.
// Each new chunk starts with the trailing pieces of the previous one,
// up to overlap runes.
func (p *Processor) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits text after each occurrence of sep, keeping sep at the end
// of its piece so joining the pieces restores text. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	return strings.SplitAfter(text, sep)
}
