package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Extractor turns one file into TextUnits.
type Extractor interface {
	// Extensions returns the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Extract reads the file at path. Units carry the file's base name as source.
	Extract(ctx context.Context, path string) ([]domain.TextUnit, error)
}

// ExtractorRegistry selects an extractor by file extension.
type ExtractorRegistry interface {
	// Register adds an extractor for its extensions. Later registrations win.
	Register(e Extractor)

	// For returns the extractor for a path, or domain.ErrUnsupportedFormat.
	For(path string) (Extractor, error)

	// Supports reports whether some extractor handles the path.
	Supports(path string) bool
}
