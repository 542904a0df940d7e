// Package persistence serializes collection snapshots to the ARESVEC1
// single-file binary layout.
//
// A snapshot file is, in order: a fixed 25-byte header (magic, version,
// dimension, metric, record count), a record table (id, embedding, metadata
// blob per record), and the graph section (per-node levels and
// neighbor-index lists). All integers are little-endian. Saves go through a
// temp file in the target directory and an atomic rename, so a crash
// mid-write never damages the previously committed file. Loads memory-map
// the file and bounds-check every field before use; any structural
// violation fails with ErrCorruptPersistedFile rather than yielding a
// partially loaded collection.
package persistence
