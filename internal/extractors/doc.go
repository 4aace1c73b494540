// Package extractors turns input files into TextUnits. Each subpackage
// handles one family of file extensions; the Registry picks one per file.
//
// Extractors emit raw units. Whitespace cleaning and the prose filter run
// in the post-processor pipeline.
package extractors
