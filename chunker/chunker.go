// Package chunker splits documents into bounded segments for independent
// embedding. A Splitter cuts raw text; Chunks wraps the pieces with ids,
// ordinals, and inherited metadata so they can be upserted as records.
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ares-labs/aresvec/model"
)

// Metadata keys written onto every chunk.
const (
	// SourceIDKey holds the originating document id.
	SourceIDKey = "source_id"

	// ChunkIndexKey holds the chunk's ordinal within its document.
	ChunkIndexKey = "chunk_index"
)

// Splitter cuts text into segments. Implementations must be deterministic:
// the same text always yields the same segments.
type Splitter interface {
	Split(text string) []string
}

// Chunk is one bounded segment of a source document. Chunks are immutable
// once produced.
type Chunk struct {
	// SourceID is the id of the document this chunk came from.
	SourceID string

	// Index is the chunk's ordinal position within the document.
	Index int

	// Text is the chunk content.
	Text string

	// Metadata is the document metadata plus the source id and chunk
	// index entries.
	Metadata map[string]any
}

// ID returns the chunk's record id, unique within a collection as long as
// document ids are.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.SourceID, c.Index)
}

// Chunks splits doc and wraps each kept piece. Pieces shorter than minWords
// are dropped, except when the splitter produced a single piece, which is
// always kept; minWords < 1 disables the filter. Documents without an id are
// assigned a random one.
func Chunks(doc model.Document, s Splitter, minWords int) []Chunk {
	pieces := s.Split(doc.Content)
	if len(pieces) == 0 {
		return nil
	}

	if minWords > 0 && len(pieces) > 1 {
		kept := pieces[:0]
		for _, p := range pieces {
			if countWords(p) >= minWords {
				kept = append(kept, p)
			}
		}
		pieces = kept
	}
	if len(pieces) == 0 {
		return nil
	}

	docID := doc.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	out := make([]Chunk, len(pieces))
	for i, p := range pieces {
		meta := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[SourceIDKey] = docID
		meta[ChunkIndexKey] = i

		out[i] = Chunk{
			SourceID: docID,
			Index:    i,
			Text:     p,
			Metadata: meta,
		}
	}

	return out
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
