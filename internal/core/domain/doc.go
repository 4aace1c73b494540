// Package domain defines the core entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TextUnit: A span of extracted text or table content with source metadata
//   - EmbeddingRecord: A TextUnit paired with its vector
//   - Session: Ordered conversation history for one session id
//   - Stage: A named step of the ingestion pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
