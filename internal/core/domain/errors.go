package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no extractor handles a file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrExtractionFailed indicates a single file could not be turned into text units.
	// Non-fatal: the file is skipped and retried on the next run.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrTrackerCorrupt indicates a persisted processed set could not be decoded.
	// Non-fatal: the stage treats it as empty and reprocesses.
	ErrTrackerCorrupt = errors.New("tracker state corrupt")

	// ErrEmbeddingFailed indicates the embedding collaborator failed or
	// returned vectors that do not line up with the input.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrIngestLocked indicates another ingestion run holds the pipeline lock.
	ErrIngestLocked = errors.New("ingestion already running")

	// Index Errors.

	// ErrIndexNotFound indicates no vector index has been built yet.
	// The query path cannot serve until ingestion has run at least once.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrDimensionMismatch indicates a vector length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMetricMismatch indicates an index was built with a different distance metric.
	ErrMetricMismatch = errors.New("distance metric mismatch")

	// Query Errors.

	// ErrGenerationFailed indicates the answer or reformulation model failed.
	// Fatal to the current chat turn only.
	ErrGenerationFailed = errors.New("generation failed")
)
