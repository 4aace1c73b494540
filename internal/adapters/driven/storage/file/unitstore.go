package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.UnitStore            = (*UnitStore)(nil)
	_ driven.EmbeddingRecordStore = (*RecordStore)(nil)
)

// UnitStore keeps the units of each document in one JSON file per stage.
type UnitStore struct {
	layout Layout
}

// NewUnitStore creates a unit store over layout.
func NewUnitStore(layout Layout) *UnitStore {
	return &UnitStore{layout: layout}
}

// Save atomically writes the units for an item.
func (s *UnitStore) Save(ctx context.Context, stage domain.Stage, name string, units []domain.TextUnit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if units == nil {
		units = []domain.TextUnit{}
	}
	dir, suffix := s.layout.unitsDir(stage)
	return writeJSON(filepath.Join(dir, SafeName(name)+suffix), units)
}

// Load reads the units for an item.
func (s *UnitStore) Load(ctx context.Context, stage domain.Stage, name string) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, suffix := s.layout.unitsDir(stage)
	var units []domain.TextUnit
	if err := readJSON(filepath.Join(dir, SafeName(name)+suffix), &units); err != nil {
		return nil, err
	}
	return units, nil
}

// List returns the item names stored for a stage.
func (s *UnitStore) List(ctx context.Context, stage domain.Stage) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, suffix := s.layout.unitsDir(stage)
	return listNames(dir, suffix, filepath.Base(s.layout.TrackerPath(stage)))
}

// RecordStore keeps embedding records per document under the model directory.
type RecordStore struct {
	layout Layout
}

// NewRecordStore creates a record store over layout.
func NewRecordStore(layout Layout) *RecordStore {
	return &RecordStore{layout: layout}
}

// Load reads the records for a document. A missing file has no records.
func (s *RecordStore) Load(ctx context.Context, name string) ([]domain.EmbeddingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []domain.EmbeddingRecord
	err := readJSON(s.path(name), &records)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// Save atomically replaces the records for a document.
func (s *RecordStore) Save(ctx context.Context, name string, records []domain.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSON(s.path(name), records)
}

// List returns the documents with saved records.
func (s *RecordStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return listNames(s.layout.ModelDir(), recordsSuffix, "")
}

func (s *RecordStore) path(name string) string {
	return filepath.Join(s.layout.ModelDir(), SafeName(name)+recordsSuffix)
}

// readJSON decodes path into v. A missing file returns domain.ErrNotFound.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// listNames returns the sorted names of regular files in dir ending with
// suffix, with the suffix removed. Hidden files and skip are ignored.
func listNames(dir, suffix, skip string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := []string{}
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(n, ".") || n == skip {
			continue
		}
		if !strings.HasSuffix(n, suffix) || len(n) == len(suffix) {
			continue
		}
		names = append(names, nameFromSafe(strings.TrimSuffix(n, suffix)))
	}
	sort.Strings(names)
	return names, nil
}
