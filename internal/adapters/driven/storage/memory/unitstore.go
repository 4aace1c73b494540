package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.UnitStore            = (*UnitStore)(nil)
	_ driven.EmbeddingRecordStore = (*RecordStore)(nil)
)

// UnitStore is an in-memory implementation of driven.UnitStore.
type UnitStore struct {
	mu    sync.RWMutex
	units map[domain.Stage]map[string][]domain.TextUnit
}

// NewUnitStore creates a new in-memory unit store.
func NewUnitStore() *UnitStore {
	return &UnitStore{
		units: make(map[domain.Stage]map[string][]domain.TextUnit),
	}
}

// Save stores the units for an item.
func (s *UnitStore) Save(_ context.Context, stage domain.Stage, name string, units []domain.TextUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.units[stage] == nil {
		s.units[stage] = make(map[string][]domain.TextUnit)
	}
	s.units[stage][name] = append([]domain.TextUnit(nil), units...)
	return nil
}

// Load retrieves the units for an item.
func (s *UnitStore) Load(_ context.Context, stage domain.Stage, name string) ([]domain.TextUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	units, ok := s.units[stage][name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.TextUnit(nil), units...), nil
}

// List returns the sorted item names for a stage.
func (s *UnitStore) List(_ context.Context, stage domain.Stage) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.units[stage]), nil
}

// RecordStore is an in-memory implementation of driven.EmbeddingRecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string][]domain.EmbeddingRecord
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string][]domain.EmbeddingRecord),
	}
}

// Load returns the records for a document, or none.
func (s *RecordStore) Load(_ context.Context, name string) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.EmbeddingRecord(nil), s.records[name]...), nil
}

// Save replaces the records for a document.
func (s *RecordStore) Save(_ context.Context, name string, records []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = append([]domain.EmbeddingRecord(nil), records...)
	return nil
}

// List returns the sorted document names.
func (s *RecordStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.records), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
