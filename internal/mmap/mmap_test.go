package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenReadClose(t *testing.T) {
	content := []byte("hello, mapped world")
	m, err := Open(writeTempFile(t, content))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 6)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "mapped", string(buf))

	t.Run("Past end", func(t *testing.T) {
		n, err := m.ReadAt(buf, int64(len(content)+10))
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
	})

	t.Run("Partial read at tail", func(t *testing.T) {
		big := make([]byte, 10)
		n, err := m.ReadAt(big, int64(len(content)-5))
		assert.Equal(t, 5, n)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, "world", string(big[:n]))
	})

	t.Run("Negative offset", func(t *testing.T) {
		_, err := m.ReadAt(buf, -1)
		assert.Equal(t, ErrInvalidOffset, err)
	})
}

func TestEmptyFile(t *testing.T) {
	m, err := Open(writeTempFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.Bytes())
}

func TestAdvise(t *testing.T) {
	m, err := Open(writeTempFile(t, make([]byte, 4096)))
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.Advise(AccessSequential))
	assert.NoError(t, m.Advise(AccessRandom))
	assert.NoError(t, m.Advise(AccessDefault))
}

func TestCloseIsIdempotent(t *testing.T) {
	m, err := Open(writeTempFile(t, []byte("x")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.Equal(t, 0, m.Size())

	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, m.Advise(AccessRandom))
}

func TestMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
