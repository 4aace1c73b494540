package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure TrackerStore implements the interface.
var _ driven.TrackerStore = (*TrackerStore)(nil)

// TrackerStore keeps each stage's processed set in a JSON array file.
type TrackerStore struct {
	layout Layout
}

// NewTrackerStore creates a tracker store over layout.
func NewTrackerStore(layout Layout) *TrackerStore {
	return &TrackerStore{layout: layout}
}

// Load reads a stage's ids. A missing file is an empty set.
func (s *TrackerStore) Load(ctx context.Context, stage domain.Stage) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.layout.TrackerPath(stage)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read %s tracker: %w", stage, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTrackerCorrupt, path, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Save atomically replaces a stage's ids.
func (s *TrackerStore) Save(ctx context.Context, stage domain.Stage, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return writeJSON(s.layout.TrackerPath(stage), ids)
}
