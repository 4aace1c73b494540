// Package file persists pipeline state as JSON files under a root directory.
//
// Layout:
//
//	processed_docs/<file>.json                   extracted units
//	processed_docs/processed_files.json          extraction tracker
//	chunks/<file>_chunks.json                    chunked units
//	chunks/processed_chunked.json                chunking tracker
//	embeddings/<model>/<file>_embeddings.json    embedding records
//	embeddings/<model>/processed_embedded.json   embedding tracker
//	embeddings/<model>/index.gob                 vector index
//	embeddings/<model>/processed_in_index.json   index tracker
//	.ingest.lock                                 run lock
//
// Every write goes to a temp file in the same directory, is synced, then
// renamed over the target, so readers see the old or the new content.
package file
