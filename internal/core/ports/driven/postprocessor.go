package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// PostProcessor transforms the extracted units of one source document.
// PostProcessors are chained in a pipeline (e.g., cleaning, then chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes the units of one document and returns the transformed units.
	// Implementations must be deterministic for a given input and configuration.
	Process(ctx context.Context, units []domain.TextUnit) ([]domain.TextUnit, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the units through all processors in order.
	Process(ctx context.Context, units []domain.TextUnit) ([]domain.TextUnit, error)
}
