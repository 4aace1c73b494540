package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// TrackerStore persists the processed set of each pipeline stage.
type TrackerStore interface {
	// Load returns the persisted ids for a stage.
	// A stage with no prior state returns an empty slice and no error.
	// Undecodable state returns an error wrapping domain.ErrTrackerCorrupt.
	Load(ctx context.Context, stage domain.Stage) ([]string, error)

	// Save atomically replaces the persisted ids for a stage.
	// A failed save must leave the previous state intact.
	Save(ctx context.Context, stage domain.Stage, ids []string) error
}

// RunLock excludes concurrent ingestion runs that share persisted state.
type RunLock interface {
	// Acquire takes the lock or returns domain.ErrIngestLocked if it is held.
	// The returned release func must be called once the run ends.
	Acquire(ctx context.Context) (release func() error, err error)
}
