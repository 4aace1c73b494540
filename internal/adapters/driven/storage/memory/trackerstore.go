package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure TrackerStore implements the interface.
var _ driven.TrackerStore = (*TrackerStore)(nil)

// TrackerStore is an in-memory implementation of driven.TrackerStore.
type TrackerStore struct {
	mu     sync.RWMutex
	stages map[domain.Stage][]string
}

// NewTrackerStore creates a new in-memory tracker store.
func NewTrackerStore() *TrackerStore {
	return &TrackerStore{
		stages: make(map[domain.Stage][]string),
	}
}

// Load returns a copy of the ids saved for a stage.
func (s *TrackerStore) Load(_ context.Context, stage domain.Stage) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.stages[stage]...), nil
}

// Save replaces the ids for a stage.
func (s *TrackerStore) Save(_ context.Context, stage domain.Stage, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[stage] = append([]string(nil), ids...)
	return nil
}
