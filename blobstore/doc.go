// Package blobstore abstracts the storage that backup archives and
// manifests live in.
//
// Store is the interface for writing and reading named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - Local: local filesystem with mmap-backed reads
//   - Memory: in-memory store for tests
//   - Mirror: read-through copy of a remote store onto a local one
//   - s3.Store: Amazon S3 with ranged reads and streaming uploads
//   - minio.Store: MinIO and other S3-compatible systems
//
// # Custom Implementations
//
// Implement the Store interface to support other backends:
//
//	type Store interface {
//	    Create(ctx, name) (io.WriteCloser, error) // visible after Close
//	    Open(ctx, name) (Blob, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
