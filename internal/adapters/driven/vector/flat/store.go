package flat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure FileStore implements the interfaces.
var (
	_ driven.VectorIndex      = (*FileStore)(nil)
	_ driven.VectorIndexStore = (*FileStore)(nil)
)

// FileStore serves searches from the index persisted at a path and merges
// new records into it. Merges are serialised; searches read the published
// snapshot without locking. Every read compares the snapshot with the file
// on disk, so a merge made by another process is picked up by the next
// search.
type FileStore struct {
	path   string
	metric domain.Metric

	mu      sync.Mutex
	current atomic.Pointer[published]
}

// published is an index together with the stat of the file it came from.
type published struct {
	idx  *Index
	info fs.FileInfo
}

// NewFileStore creates a store for the index at path. Nothing is read until
// the first search or merge.
func NewFileStore(path string, metric domain.Metric) *FileStore {
	if metric == "" {
		metric = domain.MetricCosine
	}
	return &FileStore{path: path, metric: metric}
}

// Path returns the index file path.
func (s *FileStore) Path() string {
	return s.path
}

// Current returns the published index, reloading it when the file has been
// replaced since it was read. Absence is not cached.
func (s *FileStore) Current() (*Index, error) {
	if p := s.current.Load(); p != nil && s.unchanged(p.info) {
		return p.idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// Reload re-reads the index from disk and publishes it.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(nil)
	_, err := s.refreshLocked()
	return err
}

// unchanged reports whether the file at the store's path is still the one
// described by info. Saves rename a new file into place, so identity, size
// and modification time all have to match.
func (s *FileStore) unchanged(info fs.FileInfo) bool {
	if info == nil {
		return false
	}
	now, err := os.Stat(s.path)
	return err == nil && os.SameFile(info, now) &&
		now.Size() == info.Size() && now.ModTime().Equal(info.ModTime())
}

// refreshLocked returns the published index, loading it first if the file
// changed. The caller holds mu.
func (s *FileStore) refreshLocked() (*Index, error) {
	if p := s.current.Load(); p != nil && s.unchanged(p.info) {
		return p.idx, nil
	}
	idx, info, err := loadWithInfo(s.path, s.metric)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			s.current.Store(nil)
		}
		return nil, err
	}
	s.current.Store(&published{idx: idx, info: info})
	logger.Debug("Loaded vector index %s (%d entries)", s.path, idx.Len())
	return idx, nil
}

// Search runs a query against the published index.
func (s *FileStore) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredUnit, error) {
	idx, err := s.Current()
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query, k)
}

// Len returns the number of entries in the published index, or 0 if none.
func (s *FileStore) Len() int {
	idx, err := s.Current()
	if err != nil {
		return 0
	}
	return idx.Len()
}

// Merge folds records into the persisted index, creating it when absent.
// Readers switch to the new index only after it has replaced the file.
func (s *FileStore) Merge(ctx context.Context, records []domain.EmbeddingRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := s.refreshLocked()
	exists := true
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIndexNotFound):
		exists = false
		if base, err = New(s.metric); err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	next, added, err := base.Add(records)
	if err != nil {
		return 0, fmt.Errorf("add embeddings: %w", err)
	}
	if added == 0 && exists {
		return 0, nil
	}

	if err := Save(next, s.path); err != nil {
		return 0, err
	}
	// A failed stat only costs a reload on the next read.
	info, _ := os.Stat(s.path)
	s.current.Store(&published{idx: next, info: info})
	logger.Debug("Merged %d entries into %s (%d total)", added, s.path, next.Len())
	return added, nil
}
