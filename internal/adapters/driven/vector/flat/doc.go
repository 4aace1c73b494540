// Package flat provides an exact, pure-Go nearest-neighbour index over
// embedding records. Every search scans all entries, so results are exact
// and ties keep insertion order.
//
// An Index value is immutable once built: Add returns a new Index and leaves
// the receiver untouched, so readers holding the old value are never
// affected by a merge. FileStore persists the index with an atomic
// temp-file-and-rename and publishes new snapshots to readers only after
// the rename succeeds.
package flat
