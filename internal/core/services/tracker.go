package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// StageTracker records which items a pipeline stage has already consumed.
// Membership only grows. Commits are serialised; the store makes each one atomic.
type StageTracker[K ~string] struct {
	store driven.TrackerStore
	stage domain.Stage

	mu  sync.Mutex
	set map[K]struct{}
}

// NewStageTracker creates a tracker for one stage. Call Load before use.
func NewStageTracker[K ~string](store driven.TrackerStore, stage domain.Stage) *StageTracker[K] {
	return &StageTracker[K]{
		store: store,
		stage: stage,
		set:   make(map[K]struct{}),
	}
}

// Stage returns the stage this tracker belongs to.
func (t *StageTracker[K]) Stage() domain.Stage {
	return t.stage
}

// Load reads the persisted set. Unreadable state is treated as empty so the
// stage reprocesses rather than loses data. Only context errors are returned.
func (t *StageTracker[K]) Load(ctx context.Context) error {
	ids, err := t.store.Load(ctx, t.stage)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, domain.ErrTrackerCorrupt) {
			logger.Warn("Tracker for %s is corrupt, reprocessing from scratch: %v", t.stage, err)
		} else {
			logger.Warn("Tracker for %s unreadable, reprocessing from scratch: %v", t.stage, err)
		}
		ids = nil
	}

	set := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		set[K(id)] = struct{}{}
	}

	t.mu.Lock()
	t.set = set
	t.mu.Unlock()

	logger.Debug("Tracker %s: %d processed", t.stage, len(set))
	return nil
}

// IsProcessed reports whether id has been committed.
func (t *StageTracker[K]) IsProcessed(id K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.set[id]
	return ok
}

// Len returns the number of committed ids.
func (t *StageTracker[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.set)
}

// Processed returns the committed ids in sorted order.
func (t *StageTracker[K]) Processed() []K {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedLocked()
}

// Commit merges ids into the set and persists the result.
// If persisting fails the in-memory set is left as it was.
func (t *StageTracker[K]) Commit(ctx context.Context, ids ...K) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added []K
	for _, id := range ids {
		if _, ok := t.set[id]; ok {
			continue
		}
		t.set[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		return nil
	}

	sorted := t.sortedLocked()
	persisted := make([]string, len(sorted))
	for i, id := range sorted {
		persisted[i] = string(id)
	}

	if err := t.store.Save(ctx, t.stage, persisted); err != nil {
		for _, id := range added {
			delete(t.set, id)
		}
		return fmt.Errorf("commit %s tracker: %w", t.stage, err)
	}
	return nil
}

func (t *StageTracker[K]) sortedLocked() []K {
	out := make([]K, 0, len(t.set))
	for id := range t.set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
