package model

import (
	"github.com/ares-labs/aresvec/distance"
)

// ContentKey is the reserved metadata key under which a record's raw text is
// stored. Document ingest writes it; the lexical index and search results
// read it. The persisted record layout stays id/embedding/metadata because
// content travels inside the metadata blob.
const ContentKey = "content"

// Document is the ingest-level unit: a piece of text plus caller metadata.
// Documents are chunked and embedded before they become vector records.
type Document struct {
	// ID identifies the document within its collection. Empty IDs are
	// assigned a generated one during ingest.
	ID string

	// Content is the raw text.
	Content string

	// Metadata is an opaque JSON-like key/value map inherited by every
	// chunk produced from this document.
	Metadata map[string]any
}

// VectorRecord is the stored unit of a collection.
type VectorRecord struct {
	// ID is unique within the collection.
	ID string

	// Embedding has exactly the collection's dimension. Records with a
	// different length are rejected, never padded or truncated.
	Embedding []float32

	// Metadata is an opaque JSON-like key/value map. Text content, when
	// present, is stored under ContentKey.
	Metadata map[string]any
}

// Content returns the text stored under ContentKey, or "" when the record
// carries no content.
func (r VectorRecord) Content() string {
	if r.Metadata == nil {
		return ""
	}
	s, _ := r.Metadata[ContentKey].(string)
	return s
}

// SearchResult is one scored hit. Results are ephemeral: constructed per
// query, never persisted.
type SearchResult struct {
	// Document carries the hit's id, content, and user metadata. The
	// reserved content key is lifted out of Metadata into Content.
	Document Document

	// Score is normalized to [0,1] per strategy before any combination.
	Score float64

	// RerankScore is non-nil only when a rerank pass ran and produced a
	// score for this result.
	RerankScore *float64
}

// SparseVector is a sparse embedding: parallel index/value slices sorted by
// ascending index.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// CollectionInfo describes one collection in a listing.
type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    distance.Metric
	Count     int
}

// CollectionStats reports the size of a collection.
type CollectionStats struct {
	Count           int
	Dimension       int
	ApproxSizeBytes int64
}

// IngestReport summarizes one document upsert call. Per-document failures do
// not abort the batch; they are reported here instead.
type IngestReport struct {
	// Documents is the number of documents seen.
	Documents int

	// Chunks is the number of chunks produced by the splitter.
	Chunks int

	// Upserted is the number of vector records written.
	Upserted int

	// Failures maps document id to the error that kept it (or some of its
	// chunks) out of the collection.
	Failures map[string]error
}

// Failed reports whether any document in the batch failed.
func (r *IngestReport) Failed() bool {
	return len(r.Failures) > 0
}
