package collection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ares-labs/aresvec/distance"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/lexical"
	"github.com/ares-labs/aresvec/model"
)

// ErrEmptyID is returned for records without an id.
var ErrEmptyID = errors.New("record id is empty")

// Options configures a collection's indexes.
type Options struct {
	// Graph configures the proximity graph.
	Graph hnsw.Options

	// Lexical configures BM25 ranking.
	Lexical lexical.Options
}

// DefaultOptions are the options used by New unless overridden.
var DefaultOptions = Options{
	Graph:   hnsw.DefaultOptions,
	Lexical: lexical.DefaultOptions,
}

// Collection is one named set of (id, embedding, metadata) records plus its
// indexes. All methods are safe for concurrent use.
type Collection struct {
	name string

	// mu guards the parallel tables and the filter bitmaps. The graph has
	// its own lock; the order is always collection before graph.
	mu sync.RWMutex

	graph *hnsw.Graph
	lex   *lexical.Index

	// ids and meta are aligned with graph arena indices.
	ids  []string
	meta []map[string]any
	byID map[string]uint32

	// bitmaps holds equality filter sets: key -> canonical value -> internal
	// ids. Maintained incrementally and rebuilt on load.
	bitmaps map[string]map[string]*roaring.Bitmap

	// saveGate blocks mutations while a save is running. Reads do not
	// touch it.
	saveGate sync.RWMutex
}

// New creates an empty collection.
func New(name string, dimension int, metric distance.Metric, optFns ...func(o *Options)) (*Collection, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, errors.New("collection name is empty")
	}

	graph, err := hnsw.New(dimension, metric, func(o *hnsw.Options) {
		*o = opts.Graph
	})
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}

	lex := lexical.NewIndex(func(o *lexical.Options) {
		*o = opts.Lexical
	})

	return &Collection{
		name:    name,
		graph:   graph,
		lex:     lex,
		byID:    make(map[string]uint32),
		bitmaps: make(map[string]map[string]*roaring.Bitmap),
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimension returns the embedding dimension.
func (c *Collection) Dimension() int { return c.graph.Dimension() }

// Metric returns the distance metric.
func (c *Collection) Metric() distance.Metric { return c.graph.Metric() }

// Count returns the number of records.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.ids)
}

// Info describes the collection for listings.
func (c *Collection) Info() model.CollectionInfo {
	return model.CollectionInfo{
		Name:      c.name,
		Dimension: c.Dimension(),
		Metric:    c.Metric(),
		Count:     c.Count(),
	}
}

// Stats estimates the collection's memory footprint: vectors, ids, content,
// and a fixed per-record overhead for the index structures.
func (c *Collection) Stats() model.CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const perRecordOverhead = 96

	size := int64(0)
	for i, id := range c.ids {
		size += int64(len(id)) + int64(4*c.graph.Dimension()) + perRecordOverhead
		size += int64(len(contentOf(c.meta[i])))
	}

	return model.CollectionStats{
		Count:           len(c.ids),
		Dimension:       c.graph.Dimension(),
		ApproxSizeBytes: size,
	}
}

// Get returns a copy of the record stored under id.
func (c *Collection) Get(id string) (model.VectorRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	internal, ok := c.byID[id]
	if !ok {
		return model.VectorRecord{}, false
	}

	vec, err := c.graph.Vector(internal)
	if err != nil {
		return model.VectorRecord{}, false
	}

	embedding := make([]float32, len(vec))
	copy(embedding, vec)

	return model.VectorRecord{
		ID:        id,
		Embedding: embedding,
		Metadata:  cloneMetadata(c.meta[internal]),
	}, true
}

// Lexical exposes the collection's BM25 index for the search engine.
func (c *Collection) Lexical() *lexical.Index { return c.lex }

// cloneMetadata copies the top level of a metadata map. Values are treated
// as immutable: updates replace whole maps, never mutate stored ones.
func cloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}

	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}

	return out
}

// contentOf extracts the reserved content entry from a metadata map.
func contentOf(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[model.ContentKey].(string)

	return s
}
