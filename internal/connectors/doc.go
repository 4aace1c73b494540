// Package connectors provides the document sources ingestion reads from.
// The filesystem source lists and watches the data folder.
package connectors
