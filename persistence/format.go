package persistence

import (
	"errors"
	"fmt"

	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/model"
)

const (
	// Magic identifies snapshot files. Exactly eight bytes, written as-is.
	Magic = "ARESVEC1"

	// Version is the current format version.
	Version uint32 = 1

	// headerSize is magic(8) + version(4) + dimension(4) + metric(1) +
	// record count(8).
	headerSize = 25
)

// ErrCorruptPersistedFile marks a snapshot that failed structural
// validation. Loading never yields partial state: either the whole file
// parses, or this error is returned.
var ErrCorruptPersistedFile = errors.New("corrupt persisted file")

// CorruptError carries the location and reason of a validation failure. It
// unwraps to ErrCorruptPersistedFile.
type CorruptError struct {
	Offset int64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt persisted file: %s (offset %d)", e.Reason, e.Offset)
}

func (e *CorruptError) Unwrap() error { return ErrCorruptPersistedFile }

func corruptf(offset int64, format string, args ...any) error {
	return &CorruptError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Snapshot is the parsed form of one snapshot file: records aligned with
// graph node ids. Records[i].Embedding and Graph.Vectors[i] refer to the
// same vector; the embedding is stored once on disk.
type Snapshot struct {
	Records []model.VectorRecord
	Graph   *hnsw.GraphData
}

// validate checks the cross-section invariants the writer relies on.
func (s *Snapshot) validate() error {
	if s.Graph == nil {
		return errors.New("snapshot has no graph data")
	}
	if s.Graph.Dimension < 1 {
		return fmt.Errorf("invalid dimension %d", s.Graph.Dimension)
	}
	if !s.Graph.Metric.Valid() {
		return fmt.Errorf("invalid metric %d", s.Graph.Metric)
	}

	n := len(s.Records)
	if len(s.Graph.Levels) != n || len(s.Graph.Neighbors) != n {
		return fmt.Errorf("record/graph size mismatch: %d records, %d levels, %d adjacency sets",
			n, len(s.Graph.Levels), len(s.Graph.Neighbors))
	}

	for i, rec := range s.Records {
		if len(rec.Embedding) != s.Graph.Dimension {
			return fmt.Errorf("record %q: embedding length %d, dimension %d",
				rec.ID, len(rec.Embedding), s.Graph.Dimension)
		}
		if len(s.Graph.Neighbors[i]) != int(s.Graph.Levels[i])+1 {
			return fmt.Errorf("node %d: %d adjacency levels for level %d",
				i, len(s.Graph.Neighbors[i]), s.Graph.Levels[i])
		}
	}

	return nil
}
