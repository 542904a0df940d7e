package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist so filesystem errors match without
// translation.
var ErrNotFound = os.ErrNotExist

// Store reads and writes named blobs. Names may contain slashes, which
// backends treat as path separators.
type Store interface {
	// Create opens a named blob for writing. The blob becomes visible to
	// Open only once Close returns nil; a blob with the same name is
	// replaced atomically.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs under prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off. It returns io.EOF
	// when fewer bytes remain.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// Size returns the size of the blob in bytes.
	Size() int64

	Close() error
}

// NewReader adapts a Blob to a sequential io.Reader starting at offset 0.
func NewReader(ctx context.Context, b Blob) io.Reader {
	return &blobReader{ctx: ctx, b: b}
}

type blobReader struct {
	ctx context.Context
	b   Blob
	off int64
}

func (r *blobReader) Read(p []byte) (int, error) {
	if r.off >= r.b.Size() {
		return 0, io.EOF
	}
	n, err := r.b.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}

// ReadAll reads the complete contents of a blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	buf := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if int64(n) < b.Size() {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

// WriteBlob writes data as a complete blob through store.Create.
func WriteBlob(ctx context.Context, store Store, name string, data []byte) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
