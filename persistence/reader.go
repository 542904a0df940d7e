package persistence

import (
	"encoding/binary"
	"math"

	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/distance"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/internal/mmap"
	"github.com/ares-labs/aresvec/model"
)

// LoadSnapshot memory-maps path and parses it with ReadSnapshot. All
// returned data is copied out of the mapping before it closes.
func LoadSnapshot(path string, c codec.Codec) (*Snapshot, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)

	return ReadSnapshot(m.Bytes(), c)
}

// ReadSnapshot parses a snapshot, validating the header before touching the
// body and bounds-checking every field. It never returns partial state.
func ReadSnapshot(data []byte, c codec.Codec) (*Snapshot, error) {
	if c == nil {
		c = codec.Default
	}

	r := &sliceReader{data: data}

	magic, err := r.bytes(len(Magic), "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, corruptf(0, "bad magic %q", magic)
	}

	version, err := r.u32("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, corruptf(r.offset(), "unsupported version %d", version)
	}

	dim, err := r.u32("dimension")
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, corruptf(r.offset(), "zero dimension")
	}

	metricCode, err := r.u8("metric")
	if err != nil {
		return nil, err
	}
	metric := distance.Metric(metricCode)
	if !metric.Valid() {
		return nil, corruptf(r.offset(), "unknown metric %d", metricCode)
	}

	recordCount, err := r.u64("record count")
	if err != nil {
		return nil, err
	}
	if recordCount > math.MaxUint32 {
		return nil, corruptf(r.offset(), "record count %d exceeds id space", recordCount)
	}

	// A record is at least id_len + embedding + metadata_len bytes; a count
	// that cannot fit in the remaining file is lying.
	minRecord := uint64(4 + 4*dim + 4)
	if recordCount > uint64(r.remaining())/minRecord {
		return nil, corruptf(r.offset(), "record count %d cannot fit in %d remaining bytes",
			recordCount, r.remaining())
	}

	n := int(recordCount)
	records := make([]model.VectorRecord, 0, n)
	vectors := make([][]float32, 0, n)

	for i := range n {
		idLen, err := r.u32("id length")
		if err != nil {
			return nil, err
		}

		idBytes, err := r.bytes(int(idLen), "record id")
		if err != nil {
			return nil, err
		}
		id := string(idBytes)

		embedding, err := r.f32s(int(dim), "embedding")
		if err != nil {
			return nil, err
		}

		metaLen, err := r.u32("metadata length")
		if err != nil {
			return nil, err
		}

		blob, err := r.bytes(int(metaLen), "metadata")
		if err != nil {
			return nil, err
		}

		var metadata map[string]any
		if metaLen > 0 {
			if err := c.Unmarshal(blob, &metadata); err != nil {
				return nil, corruptf(r.offset(), "record %d metadata: %v", i, err)
			}
		}

		records = append(records, model.VectorRecord{
			ID:        id,
			Embedding: embedding,
			Metadata:  metadata,
		})
		vectors = append(vectors, embedding)
	}

	nodeCount, err := r.u64("node count")
	if err != nil {
		return nil, err
	}
	if nodeCount != recordCount {
		return nil, corruptf(r.offset(), "node count %d != record count %d", nodeCount, recordCount)
	}

	levels := make([]uint8, n)
	neighbors := make([][][]uint32, n)

	for i := range n {
		level, err := r.u8("node level")
		if err != nil {
			return nil, err
		}
		levels[i] = level

		perLevel := make([][]uint32, int(level)+1)
		for l := range perLevel {
			count, err := r.u32("neighbor count")
			if err != nil {
				return nil, err
			}
			if uint64(count) > recordCount {
				return nil, corruptf(r.offset(), "node %d level %d: %d neighbors with %d nodes",
					i, l, count, recordCount)
			}

			links, err := r.u32s(int(count), "neighbor list")
			if err != nil {
				return nil, err
			}
			for _, nb := range links {
				if uint64(nb) >= recordCount {
					return nil, corruptf(r.offset(), "node %d level %d: neighbor %d out of range",
						i, l, nb)
				}
			}
			perLevel[l] = links
		}
		neighbors[i] = perLevel
	}

	if r.remaining() != 0 {
		return nil, corruptf(r.offset(), "%d trailing bytes", r.remaining())
	}

	return &Snapshot{
		Records: records,
		Graph: &hnsw.GraphData{
			Dimension: int(dim),
			Metric:    metric,
			Vectors:   vectors,
			Levels:    levels,
			Neighbors: neighbors,
		},
	}, nil
}

// sliceReader is a bounds-checked cursor over a mapped file.
type sliceReader struct {
	data []byte
	off  int
}

func (r *sliceReader) offset() int64 { return int64(r.off) }

func (r *sliceReader) remaining() int { return len(r.data) - r.off }

func (r *sliceReader) bytes(n int, what string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, corruptf(r.offset(), "truncated %s: need %d bytes, have %d", what, n, r.remaining())
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *sliceReader) u8(what string) (uint8, error) {
	b, err := r.bytes(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *sliceReader) u32(what string) (uint32, error) {
	b, err := r.bytes(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *sliceReader) u64(what string) (uint64, error) {
	b, err := r.bytes(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// f32s decodes element-wise: the record layout has variable-length ids, so
// embeddings are not alignment-guaranteed and cannot be cast in place.
func (r *sliceReader) f32s(n int, what string) ([]float32, error) {
	b, err := r.bytes(4*n, what)
	if err != nil {
		return nil, err
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}

	return out, nil
}

func (r *sliceReader) u32s(n int, what string) ([]uint32, error) {
	b, err := r.bytes(4*n, what)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	return out, nil
}
