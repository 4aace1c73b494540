package domain

import "time"

// Stage names one step of the ingestion pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageExtraction Stage = "extraction"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageIndex      Stage = "index"
)

// Stages returns all stages in execution order.
func Stages() []Stage {
	return []Stage{StageExtraction, StageChunking, StageEmbedding, StageIndex}
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	switch s {
	case StageExtraction, StageChunking, StageEmbedding, StageIndex:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// ItemError records why one item of a stage failed.
type ItemError struct {
	Item string
	Err  error
}

// StageReport summarises one stage run.
type StageReport struct {
	Stage Stage

	// Processed counts items handled and committed this run.
	Processed int

	// Skipped counts items already in the processed set or not applicable.
	Skipped int

	// Failed lists items that failed this run. They stay unmarked.
	Failed []ItemError

	// Added counts new entries produced (chunks, records or index entries).
	Added int

	Duration time.Duration
}

// IngestReport summarises a pipeline run.
type IngestReport struct {
	Stages   []StageReport
	Duration time.Duration
}

// Failures returns the number of failed items across all stages.
func (r *IngestReport) Failures() int {
	n := 0
	for _, s := range r.Stages {
		n += len(s.Failed)
	}
	return n
}
