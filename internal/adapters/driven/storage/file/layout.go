package file

import (
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// File and directory names of the persisted layout.
const (
	extractedDir  = "processed_docs"
	chunksDir     = "chunks"
	embeddingsDir = "embeddings"

	extractedTracker = "processed_files.json"
	chunkedTracker   = "processed_chunked.json"
	embeddedTracker  = "processed_embedded.json"
	indexedTracker   = "processed_in_index.json"

	unitsSuffix   = ".json"
	chunksSuffix  = "_chunks.json"
	recordsSuffix = "_embeddings.json"

	indexFile = "index.gob"
	lockFile  = ".ingest.lock"
)

// Layout maps pipeline artefacts to paths under a root. Derived state that
// depends on the embedding model lives in a per-model directory.
type Layout struct {
	root  string
	model string
}

// NewLayout creates a layout for root and embedding model.
func NewLayout(root, model string) Layout {
	return Layout{root: root, model: model}
}

// Root returns the root directory.
func (l Layout) Root() string {
	return l.root
}

// Model returns the embedding model name.
func (l Layout) Model() string {
	return l.model
}

// ModelDir returns the directory of model-dependent state.
func (l Layout) ModelDir() string {
	return filepath.Join(l.root, embeddingsDir, SafeName(l.model))
}

// IndexPath returns the vector index file.
func (l Layout) IndexPath() string {
	return filepath.Join(l.ModelDir(), indexFile)
}

// LockPath returns the run lock file.
func (l Layout) LockPath() string {
	return filepath.Join(l.root, lockFile)
}

// TrackerPath returns the processed-set file of a stage.
func (l Layout) TrackerPath(stage domain.Stage) string {
	switch stage {
	case domain.StageExtraction:
		return filepath.Join(l.root, extractedDir, extractedTracker)
	case domain.StageChunking:
		return filepath.Join(l.root, chunksDir, chunkedTracker)
	case domain.StageEmbedding:
		return filepath.Join(l.ModelDir(), embeddedTracker)
	default:
		return filepath.Join(l.ModelDir(), indexedTracker)
	}
}

// unitsDir returns the directory and file suffix of a stage's unit files.
func (l Layout) unitsDir(stage domain.Stage) (string, string) {
	if stage == domain.StageChunking {
		return filepath.Join(l.root, chunksDir), chunksSuffix
	}
	return filepath.Join(l.root, extractedDir), unitsSuffix
}

// nameEscaper percent-encodes separators and '%' itself, so distinct names
// never map to the same path element.
var (
	nameEscaper   = strings.NewReplacer("%", "%25", "/", "%2F", "\\", "%5C", ":", "%3A")
	nameUnescaper = strings.NewReplacer("%25", "%", "%2F", "/", "%5C", "\\", "%3A", ":")
)

// SafeName makes a model or file name usable as a single path element.
// Different names always give different results.
func SafeName(name string) string {
	switch name {
	case "":
		return "%00"
	case ".", "..":
		return strings.ReplaceAll(name, ".", "%2E")
	}
	return nameEscaper.Replace(name)
}

// nameFromSafe reverses SafeName.
func nameFromSafe(safe string) string {
	switch safe {
	case "%00":
		return ""
	case "%2E", "%2E%2E":
		return strings.ReplaceAll(safe, "%2E", ".")
	}
	return nameUnescaper.Replace(safe)
}
