package blobstore

import (
	"context"
	"errors"
	"io"
)

// Mirror layers a local Store over a remote one. Opens are served from the
// local copy, downloading the blob on first access; creates and deletes
// write through to both sides. Blobs are immutable once written, so a
// mirrored copy never goes stale.
type Mirror struct {
	remote Store
	local  Store
}

var _ Store = (*Mirror)(nil)

// NewMirror wraps remote with a read-through local copy.
func NewMirror(remote, local Store) *Mirror {
	return &Mirror{remote: remote, local: local}
}

// Create writes the blob to the remote and the local store in one pass.
func (s *Mirror) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	rw, err := s.remote.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	lw, err := s.local.Create(ctx, name)
	if err != nil {
		_ = rw.Close()
		return nil, err
	}
	return &mirrorWriter{remote: rw, local: lw}, nil
}

// Open returns the local copy, fetching it from the remote on first access.
func (s *Mirror) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.local.Open(ctx, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.download(ctx, name); err != nil {
		return nil, err
	}
	return s.local.Open(ctx, name)
}

func (s *Mirror) download(ctx context.Context, name string) error {
	src, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.local.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, NewReader(ctx, src)); err != nil {
		_ = dst.Close()
		_ = s.local.Delete(ctx, name)
		return err
	}
	return dst.Close()
}

func (s *Mirror) Delete(ctx context.Context, name string) error {
	if err := s.local.Delete(ctx, name); err != nil {
		return err
	}
	return s.remote.Delete(ctx, name)
}

// List consults the remote store, the source of truth for what exists.
func (s *Mirror) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}

type mirrorWriter struct {
	remote io.WriteCloser
	local  io.WriteCloser
}

func (w *mirrorWriter) Write(p []byte) (int, error) {
	n, err := w.remote.Write(p)
	if err != nil {
		return n, err
	}
	return w.local.Write(p)
}

func (w *mirrorWriter) Close() error {
	rerr := w.remote.Close()
	lerr := w.local.Close()
	if rerr != nil {
		return rerr
	}
	return lerr
}
