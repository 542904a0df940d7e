package backup

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the archive codec.
type Compression string

const (
	// CompressionZstd is the default: best ratio at high throughput.
	CompressionZstd Compression = "zstd"

	// CompressionLZ4 trades ratio for the fastest decompression.
	CompressionLZ4 Compression = "lz4"

	// CompressionNone stores the snapshot bytes as-is.
	CompressionNone Compression = "none"
)

func (c Compression) valid() bool {
	switch c {
	case CompressionZstd, CompressionLZ4, CompressionNone:
		return true
	}
	return false
}

// newCompressor wraps w with the archive codec. The returned closer
// flushes the final frame without closing w.
func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("backup: unsupported compression %q", c)
	}
}

// decompress expands a complete archive. sizeHint pre-sizes the output
// buffer; it is advisory, not enforced.
func decompress(data []byte, c Compression, sizeHint int64) ([]byte, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, make([]byte, 0, sizeHint))
	case CompressionLZ4:
		buf := bytes.NewBuffer(make([]byte, 0, sizeHint))
		if _, err := io.Copy(buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("backup: unsupported compression %q", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
