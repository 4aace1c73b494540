// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants ask questions about the document collection and
// search it for passages.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
