package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure RunLock implements the interface.
var _ driven.RunLock = (*RunLock)(nil)

// RunLock excludes ingestion runs across processes with an advisory OS lock
// on the lock file. The kernel drops the lock when its holder exits, so a
// killed run never blocks the next one. The file itself is left in place.
type RunLock struct {
	path string
}

// NewRunLock creates a lock at the layout's lock path.
func NewRunLock(layout Layout) *RunLock {
	return &RunLock{path: layout.LockPath()}
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking, or returns domain.ErrIngestLocked
// while another live process holds it.
func (l *RunLock) Acquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("take lock %s: %w", l.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is held by another process", domain.ErrIngestLocked, l.path)
	}

	var (
		once sync.Once
		rerr error
	)
	return func() error {
		once.Do(func() {
			if err := fl.Unlock(); err != nil {
				rerr = fmt.Errorf("release lock: %w", err)
			}
		})
		return rerr
	}, nil
}
