// Package services implements the driving port interfaces: ingestion,
// conversational retrieval, search and settings.
//
// Services orchestrate driven ports and hold no I/O of their own.
package services
