package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex answers nearest-neighbour queries over the current index.
// Searches may run concurrently with each other and with a merge.
type VectorIndex interface {
	// Search returns up to k units ranked under the index metric.
	// An empty index returns no results and no error.
	// Returns domain.ErrIndexNotFound if no index has been built.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredUnit, error)

	// Len returns the number of entries in the current index.
	Len() int
}

// VectorIndexStore folds embedding records into the persisted index.
type VectorIndexStore interface {
	// Merge adds records to the persisted index, creating it if absent.
	// Records already admitted are skipped. The on-disk index is replaced
	// atomically and readers switch to it only after the replace.
	// Returns the number of entries added.
	Merge(ctx context.Context, records []domain.EmbeddingRecord) (int, error)
}
