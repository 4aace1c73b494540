// Package docx extracts Word documents. Paragraphs become text units and
// tables become table units, in document order.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// CellSeparator joins the cells of a table row.
const CellSeparator = " | "

const documentPart = "word/document.xml"

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// Extract reads word/document.xml from the archive at path.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer reader.Close()

	content, err := readPart(&reader.Reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc.units(name), nil
}

// readPart returns the bytes of one archive member.
func readPart(reader *zip.Reader, part string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != part {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s missing: %w", part, domain.ErrInvalidInput)
}

// documentXML is the subset of word/document.xml we read. Body children
// keep their order so tables stay between the paragraphs around them.
type documentXML struct {
	Body struct {
		Blocks []block `xml:",any"`
	} `xml:"body"`
}

// block is a body child: a paragraph (w:p) or a table (w:tbl).
type block struct {
	XMLName xml.Name
	Inlines []inline `xml:",any"`
	Rows    []row    `xml:"tr"`
}

type row struct {
	Cells []cell `xml:"tc"`
}

type cell struct {
	Paragraphs []paragraph `xml:"p"`
}

type paragraph struct {
	Inlines []inline `xml:",any"`
}

// inline is a run (w:r) or a container of runs such as w:hyperlink or w:ins.
type inline struct {
	XMLName xml.Name
	Text    []string   `xml:"t"`
	Tabs    []struct{} `xml:"tab"`
	Runs    []inline   `xml:"r"`
}

func (in inline) text(b *strings.Builder) {
	for _, t := range in.Text {
		b.WriteString(t)
	}
	if len(in.Tabs) > 0 {
		b.WriteString("\t")
	}
	for _, r := range in.Runs {
		r.text(b)
	}
}

func inlineText(inlines []inline) string {
	var b strings.Builder
	for _, in := range inlines {
		in.text(&b)
	}
	return strings.TrimSpace(b.String())
}

func (d documentXML) units(source string) []domain.TextUnit {
	var units []domain.TextUnit
	for _, blk := range d.Body.Blocks {
		var content string
		typ := domain.UnitTypeText

		switch blk.XMLName.Local {
		case "p":
			content = inlineText(blk.Inlines)
		case "tbl":
			content = tableText(blk.Rows)
			typ = domain.UnitTypeTable
		default:
			continue
		}
		if content == "" {
			continue
		}
		units = append(units, domain.TextUnit{
			Content:  content,
			Metadata: domain.Metadata{Source: source, Type: typ},
		})
	}
	return units
}

// tableText renders rows as lines of cells joined by CellSeparator.
// Rows with no text are dropped.
func tableText(rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(r.Cells))
		empty := true
		for i, c := range r.Cells {
			parts := make([]string, 0, len(c.Paragraphs))
			for _, p := range c.Paragraphs {
				if t := inlineText(p.Inlines); t != "" {
					parts = append(parts, t)
				}
			}
			cells[i] = strings.Join(parts, " ")
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			lines = append(lines, strings.Join(cells, CellSeparator))
		}
	}
	return strings.Join(lines, "\n")
}
