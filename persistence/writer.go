package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ares-labs/aresvec/codec"
)

// WriteSnapshot serializes snap to w in the ARESVEC1 layout, marshaling
// record metadata with c (codec.Default when nil).
func WriteSnapshot(w io.Writer, snap *Snapshot, c codec.Codec) error {
	if err := snap.validate(); err != nil {
		return err
	}
	if c == nil {
		c = codec.Default
	}

	sw := &snapshotWriter{w: w}

	if err := sw.raw([]byte(Magic)); err != nil {
		return err
	}
	if err := sw.u32(Version); err != nil {
		return err
	}
	if err := sw.u32(uint32(snap.Graph.Dimension)); err != nil {
		return err
	}
	if err := sw.u8(uint8(snap.Graph.Metric)); err != nil {
		return err
	}
	if err := sw.u64(uint64(len(snap.Records))); err != nil {
		return err
	}

	for _, rec := range snap.Records {
		if err := sw.writeRecord(rec.ID, rec.Embedding, rec.Metadata, c); err != nil {
			return err
		}
	}

	// Graph section. The node count mirrors the record count; the pairing
	// is what ties record ids to graph positions.
	if err := sw.u64(uint64(len(snap.Records))); err != nil {
		return err
	}

	for i := range snap.Records {
		if err := sw.u8(snap.Graph.Levels[i]); err != nil {
			return err
		}
		for _, links := range snap.Graph.Neighbors[i] {
			if err := sw.u32(uint32(len(links))); err != nil {
				return err
			}
			if err := sw.u32s(links); err != nil {
				return err
			}
		}
	}

	return nil
}

// SaveSnapshot atomically writes snap to path.
func SaveSnapshot(path string, snap *Snapshot, c codec.Codec) error {
	return SaveToFile(path, func(w io.Writer) error {
		return WriteSnapshot(w, snap, c)
	})
}

// SaveToFile writes through a temp file in the target directory and renames
// it into place, so a failed or interrupted write never touches the
// committed file.
func SaveToFile(filename string, write func(w io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename survives a crash.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""

	return nil
}

type snapshotWriter struct {
	w       io.Writer
	scratch [8]byte
	buf     []byte
}

func (sw *snapshotWriter) writeRecord(id string, embedding []float32, metadata map[string]any, c codec.Codec) error {
	if len(id) > math.MaxUint32 {
		return fmt.Errorf("record id too long: %d bytes", len(id))
	}

	if err := sw.u32(uint32(len(id))); err != nil {
		return err
	}
	if err := sw.raw([]byte(id)); err != nil {
		return err
	}
	if err := sw.f32s(embedding); err != nil {
		return err
	}

	var blob []byte
	if len(metadata) > 0 {
		b, err := c.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", id, err)
		}
		if len(b) > math.MaxUint32 {
			return fmt.Errorf("metadata too large for %q: %d bytes", id, len(b))
		}
		blob = b
	}

	if err := sw.u32(uint32(len(blob))); err != nil {
		return err
	}

	return sw.raw(blob)
}

func (sw *snapshotWriter) raw(b []byte) error {
	_, err := sw.w.Write(b)
	return err
}

func (sw *snapshotWriter) u8(v uint8) error {
	sw.scratch[0] = v
	return sw.raw(sw.scratch[:1])
}

func (sw *snapshotWriter) u32(v uint32) error {
	binary.LittleEndian.PutUint32(sw.scratch[:4], v)
	return sw.raw(sw.scratch[:4])
}

func (sw *snapshotWriter) u64(v uint64) error {
	binary.LittleEndian.PutUint64(sw.scratch[:8], v)
	return sw.raw(sw.scratch[:8])
}

func (sw *snapshotWriter) f32s(vals []float32) error {
	need := 4 * len(vals)
	if cap(sw.buf) < need {
		sw.buf = make([]byte, need)
	}

	buf := sw.buf[:need]
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return sw.raw(buf)
}

func (sw *snapshotWriter) u32s(vals []uint32) error {
	need := 4 * len(vals)
	if cap(sw.buf) < need {
		sw.buf = make([]byte, need)
	}

	buf := sw.buf[:need]
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}

	return sw.raw(buf)
}
