package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// EmbeddingRecord is a TextUnit paired with its vector representation.
type EmbeddingRecord struct {
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding"`
}

// Key returns the dedup key identifying this record.
func (r EmbeddingRecord) Key() string {
	return DedupKey(r.Metadata.Source, r.Content)
}

// Unit returns the record without its vector.
func (r EmbeddingRecord) Unit() TextUnit {
	return TextUnit{Content: r.Content, Metadata: r.Metadata}
}

// DedupKey derives the stable key for a (source, content) pair.
// The key is the hex SHA-256 of source and content separated by a NUL byte.
func DedupKey(source, content string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
