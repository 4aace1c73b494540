package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestService runs the ingestion pipeline.
type IngestService interface {
	// Run executes every stage in order. Per-item failures are reported,
	// not returned; the error is reserved for failures that stop the run.
	Run(ctx context.Context) (*domain.IngestReport, error)

	// RunStage executes a single stage against the current trackers.
	RunStage(ctx context.Context, stage domain.Stage) (*domain.StageReport, error)

	// Status returns the state of the current or last run.
	Status() IngestStatus
}

// IngestStatus represents the current state of the pipeline.
type IngestStatus struct {
	// Running indicates if a run is in progress.
	Running bool

	// Stage is the stage currently executing, empty when idle.
	Stage domain.Stage

	// LastReport is the report of the last finished run, if any.
	LastReport *domain.IngestReport
}
