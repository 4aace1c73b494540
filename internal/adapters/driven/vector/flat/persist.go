package flat

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// formatVersion is bumped when the on-disk layout changes.
const formatVersion = 1

type snapshot struct {
	Version   int
	Metric    domain.Metric
	Dimension int
	Entries   []snapshotEntry
}

type snapshotEntry struct {
	Unit   domain.TextUnit
	Vector []float32
}

// Save writes the index to path. The file is written to a temporary name in
// the same directory, synced and renamed over path, so a crash leaves either
// the old or the new index on disk.
func Save(idx *Index, path string) error {
	snap := snapshot{
		Version:   formatVersion,
		Metric:    idx.metric,
		Dimension: idx.dim,
		Entries:   make([]snapshotEntry, len(idx.entries)),
	}
	for i, e := range idx.entries {
		snap.Entries[i] = snapshotEntry{Unit: e.unit, Vector: e.vec}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	committed = true
	return nil
}

// Load reads the index at path. A missing file returns domain.ErrIndexNotFound.
// If metric is set and differs from the stored one, domain.ErrMetricMismatch
// is returned.
func Load(path string, metric domain.Metric) (*Index, error) {
	idx, _, err := loadWithInfo(path, metric)
	return idx, err
}

// loadWithInfo is Load that also returns the stat of the file it decoded.
func loadWithInfo(path string, metric domain.Metric) (*Index, fs.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w at %s", domain.ErrIndexNotFound, path)
		}
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat index: %w", err)
	}
	idx, err := decode(f, path, metric)
	if err != nil {
		return nil, nil, err
	}
	return idx, info, nil
}

func decode(f *os.File, path string, metric domain.Metric) (*Index, error) {
	var snap snapshot
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	if snap.Version != formatVersion {
		return nil, fmt.Errorf("%w: index format version %d, want %d",
			domain.ErrInvalidInput, snap.Version, formatVersion)
	}
	if metric != "" && snap.Metric != metric {
		return nil, fmt.Errorf("%w: index built with %s, configured %s",
			domain.ErrMetricMismatch, snap.Metric, metric)
	}

	idx, err := New(snap.Metric)
	if err != nil {
		return nil, err
	}
	idx.dim = snap.Dimension
	idx.entries = make([]entry, 0, len(snap.Entries))
	for _, se := range snap.Entries {
		if len(se.Vector) != idx.dim {
			return nil, fmt.Errorf("%w: stored entry has %d, index has %d",
				domain.ErrDimensionMismatch, len(se.Vector), idx.dim)
		}
		idx.keys[se.Unit.Key()] = struct{}{}
		idx.entries = append(idx.entries, entry{unit: se.Unit, vec: se.Vector, norm: norm(se.Vector)})
	}
	return idx, nil
}
