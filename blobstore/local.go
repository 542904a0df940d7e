package blobstore

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ares-labs/aresvec/internal/mmap"
)

// tmpDirName holds in-flight writes under the store root so List never
// observes them.
const tmpDirName = ".tmp"

// Local implements Store on a directory of the local filesystem.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates a store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(dir, tmpDirName), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: dir}, nil
}

func (s *Local) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Create writes to a temp file and renames it into place on Close, so
// readers never observe a partial blob.
func (s *Local) Create(_ context.Context, name string) (io.WriteCloser, error) {
	final := s.path(name)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirName), filepath.Base(final)+"-*")
	if err != nil {
		return nil, err
	}

	return &localWriter{f: tmp, final: final}, nil
}

// Open memory-maps the blob for reading.
func (s *Local) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

func (s *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Local) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == tmpDirName && filepath.Dir(path) == s.root {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

type localWriter struct {
	f     *os.File
	final string
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	if err := w.f.Sync(); err != nil {
		w.abort()
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return err
	}
	if err := os.Rename(w.f.Name(), w.final); err != nil {
		_ = os.Remove(w.f.Name())
		return err
	}
	return nil
}

func (w *localWriter) abort() {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}
