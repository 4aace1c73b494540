package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SourceFile is one input document found in the data folder.
type SourceFile struct {
	// Name is the base file name used as the item id and unit source.
	Name string

	// Path is the absolute path to read.
	Path string
}

// DocumentSource lists and watches the input documents.
type DocumentSource interface {
	// List returns visible regular files, sorted by name.
	List(ctx context.Context) ([]SourceFile, error)

	// Watch emits the names of files that were created or written to.
	// Consumers decide whether a known name needs processing again.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan SourceFile, error)
}

// UnitStore persists the units produced by a stage, one document per item.
type UnitStore interface {
	// Save atomically writes the units for an item.
	Save(ctx context.Context, stage domain.Stage, name string, units []domain.TextUnit) error

	// Load reads the units for an item. Missing items return domain.ErrNotFound.
	Load(ctx context.Context, stage domain.Stage, name string) ([]domain.TextUnit, error)

	// List returns the item names stored for a stage, sorted.
	List(ctx context.Context, stage domain.Stage) ([]string, error)
}

// EmbeddingRecordStore persists embedding records per source document.
type EmbeddingRecordStore interface {
	// Load returns the saved records for a document, or none if absent.
	Load(ctx context.Context, name string) ([]domain.EmbeddingRecord, error)

	// Save atomically replaces the records for a document.
	Save(ctx context.Context, name string, records []domain.EmbeddingRecord) error

	// List returns the document names with saved records, sorted.
	List(ctx context.Context) ([]string, error)
}
