package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure RunLock implements the interface.
var _ driven.RunLock = (*RunLock)(nil)

// RunLock is a process-local driven.RunLock.
type RunLock struct {
	mu   sync.Mutex
	held bool
}

// NewRunLock creates an unheld lock.
func NewRunLock() *RunLock {
	return &RunLock{}
}

// Acquire takes the lock without blocking.
func (l *RunLock) Acquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrIngestLocked
	}
	l.held = true

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
		return nil
	}, nil
}
