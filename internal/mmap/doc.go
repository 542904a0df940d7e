// Package mmap provides read-only memory-mapped file access.
//
// Snapshot files are mapped instead of read so loading touches only the pages
// the parser walks and large collections never double-buffer through the Go
// heap. Unix maps through mmap(2) with madvise hints; Windows maps through
// CreateFileMapping/MapViewOfFile with hints as no-ops.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch Bytes() after Close returns.
package mmap
