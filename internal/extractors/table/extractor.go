// Package table extracts delimited spreadsheets as a single table unit.
package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// CellSeparator joins the cells of a row.
const CellSeparator = " | "

// Extractor handles CSV and TSV files.
type Extractor struct{}

// New creates a new table extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".csv", ".tsv"}
}

// Extract renders every non-empty row as one line of the table unit.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}

	var lines []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if line := rowText(record); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return []domain.TextUnit{{
		Content:  strings.Join(lines, "\n"),
		Metadata: domain.Metadata{Source: name, Type: domain.UnitTypeTable},
	}}, nil
}

func rowText(record []string) string {
	empty := true
	for i, cell := range record {
		record[i] = strings.Join(strings.Fields(cell), " ")
		if record[i] != "" {
			empty = false
		}
	}
	if empty {
		return ""
	}
	return strings.Join(record, CellSeparator)
}
