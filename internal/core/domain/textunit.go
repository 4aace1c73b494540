package domain

import "strings"

// UnitType classifies the content of a TextUnit.
type UnitType string

// Available unit types.
const (
	// UnitTypeText is running prose.
	UnitTypeText UnitType = "text"

	// UnitTypeTable is tabular content. Tables are never split.
	UnitTypeTable UnitType = "table"

	// UnitTypeOCR is text recognised from an image.
	UnitTypeOCR UnitType = "ocr"
)

// IsValid returns true if the unit type is recognised.
func (t UnitType) IsValid() bool {
	switch t {
	case UnitTypeText, UnitTypeTable, UnitTypeOCR:
		return true
	default:
		return false
	}
}

// Splittable reports whether units of this type may be chunked.
func (t UnitType) Splittable() bool {
	return t != UnitTypeTable
}

// String returns the string representation.
func (t UnitType) String() string {
	return string(t)
}

// Metadata describes where a TextUnit came from.
type Metadata struct {
	// Source is the file name the unit was extracted from.
	Source string `json:"source"`

	// Page is the 1-based page number, when the format has pages.
	Page int `json:"page,omitempty"`

	// Type is the unit content type.
	Type UnitType `json:"type"`

	// ChunkID is the 1-based position of a chunk within its source.
	ChunkID int `json:"chunk_id,omitempty"`
}

// TextUnit is a span of extracted content. Immutable once created.
type TextUnit struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// IsEmpty returns true if the unit has no content beyond whitespace.
func (u TextUnit) IsEmpty() bool {
	return strings.TrimSpace(u.Content) == ""
}

// Key returns the dedup key for the unit's source and content.
func (u TextUnit) Key() string {
	return DedupKey(u.Metadata.Source, u.Content)
}
