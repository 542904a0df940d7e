package collection

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ares-labs/aresvec/codec"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/lexical"
	"github.com/ares-labs/aresvec/model"
	"github.com/ares-labs/aresvec/persistence"
)

// Snapshot copies the collection's persistable state under a read lock. The
// copy is detached: later mutations never reach it.
func (c *Collection) Snapshot() *persistence.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data := c.graph.Snapshot()

	records := make([]model.VectorRecord, len(c.ids))
	for i, id := range c.ids {
		records[i] = model.VectorRecord{
			ID:        id,
			Embedding: data.Vectors[i],
			Metadata:  cloneMetadata(c.meta[i]),
		}
	}

	return &persistence.Snapshot{Records: records, Graph: data}
}

// Save writes the collection to path through the atomic snapshot writer.
// The save gate blocks writers for the duration; readers proceed.
func (c *Collection) Save(path string, cdc codec.Codec) error {
	c.saveGate.Lock()
	defer c.saveGate.Unlock()

	return persistence.SaveSnapshot(path, c.Snapshot(), cdc)
}

// FromSnapshot rebuilds a collection from parsed snapshot data. The lexical
// index and filter bitmaps are derived data: they are reconstructed from
// record content here, not read from the file. The snapshot's slices are
// taken over; the caller must not reuse them.
func FromSnapshot(name string, snap *persistence.Snapshot, optFns ...func(o *Options)) (*Collection, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, fmt.Errorf("collection name is empty")
	}

	graph, err := hnsw.FromData(snap.Graph, func(o *hnsw.Options) {
		*o = opts.Graph
	})
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}

	lex := lexical.NewIndex(func(o *lexical.Options) {
		*o = opts.Lexical
	})

	c := &Collection{
		name:    name,
		graph:   graph,
		lex:     lex,
		ids:     make([]string, len(snap.Records)),
		meta:    make([]map[string]any, len(snap.Records)),
		byID:    make(map[string]uint32, len(snap.Records)),
		bitmaps: make(map[string]map[string]*roaring.Bitmap),
	}

	for i, rec := range snap.Records {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: record %d has an empty id",
				persistence.ErrCorruptPersistedFile, i)
		}
		if _, dup := c.byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate record id %q",
				persistence.ErrCorruptPersistedFile, rec.ID)
		}

		internal := uint32(i)
		c.ids[i] = rec.ID
		c.meta[i] = rec.Metadata
		c.byID[rec.ID] = internal

		c.indexMetadataLocked(internal, rec.Metadata)
		if content := contentOf(rec.Metadata); content != "" {
			c.lex.Add(rec.ID, content)
		}
	}

	return c, nil
}

// Load reads a snapshot file and rebuilds the collection under the given
// name. The file format carries no name; it comes from the registry.
func Load(name, path string, cdc codec.Codec, optFns ...func(o *Options)) (*Collection, error) {
	snap, err := persistence.LoadSnapshot(path, cdc)
	if err != nil {
		return nil, err
	}

	return FromSnapshot(name, snap, optFns...)
}
