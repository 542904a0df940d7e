package collection

import (
	"fmt"

	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/model"
)

// UpsertResult reports one batch: how many records landed and which ids
// failed. A failed record never aborts the rest of the batch.
type UpsertResult struct {
	Upserted int
	Failures map[string]error
}

// Failed reports whether any record in the batch failed.
func (r *UpsertResult) Failed() bool { return len(r.Failures) > 0 }

func (r *UpsertResult) fail(id string, err error) {
	if r.Failures == nil {
		r.Failures = make(map[string]error)
	}
	r.Failures[id] = err
}

// Upsert inserts or replaces records. Every record's dimension is validated
// before anything mutates: a single bad length rejects the whole batch.
// Past that check, the batch is applied under one write-lock acquisition
// and per-record failures are collected instead of aborting.
func (c *Collection) Upsert(records []model.VectorRecord) (*UpsertResult, error) {
	dim := c.graph.Dimension()
	for _, rec := range records {
		if len(rec.Embedding) != dim {
			return nil, fmt.Errorf("record %q: %w", rec.ID,
				&hnsw.DimensionMismatchError{Expected: dim, Actual: len(rec.Embedding)})
		}
	}

	c.saveGate.RLock()
	defer c.saveGate.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	res := &UpsertResult{}

	for _, rec := range records {
		if rec.ID == "" {
			res.fail("", ErrEmptyID)
			continue
		}

		if internal, ok := c.byID[rec.ID]; ok {
			if err := c.graph.Replace(internal, rec.Embedding); err != nil {
				res.fail(rec.ID, err)
				continue
			}

			c.unindexMetadataLocked(internal, c.meta[internal])
			c.meta[internal] = cloneMetadata(rec.Metadata)
			c.indexMetadataLocked(internal, c.meta[internal])
		} else {
			internal, err := c.graph.Insert(rec.Embedding)
			if err != nil {
				res.fail(rec.ID, err)
				continue
			}

			c.ids = append(c.ids, rec.ID)
			c.meta = append(c.meta, cloneMetadata(rec.Metadata))
			c.byID[rec.ID] = internal
			c.indexMetadataLocked(internal, c.meta[internal])
		}

		c.refreshLexicalLocked(rec.ID)
		res.Upserted++
	}

	return res, nil
}

// Delete removes records by external id and returns how many existed.
// Unknown ids are skipped. Each removal keeps the arena dense: the last
// graph node moves into the freed slot and the parallel tables follow.
func (c *Collection) Delete(ids ...string) int {
	c.saveGate.RLock()
	defer c.saveGate.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for _, id := range ids {
		internal, ok := c.byID[id]
		if !ok {
			continue
		}

		moved, err := c.graph.Delete(internal)
		if err != nil {
			continue
		}

		c.unindexMetadataLocked(internal, c.meta[internal])

		if moved != internal {
			movedID := c.ids[moved]
			c.relocateMetadataLocked(moved, internal, c.meta[moved])
			c.ids[internal] = movedID
			c.meta[internal] = c.meta[moved]
			c.byID[movedID] = internal
		}

		last := len(c.ids) - 1
		c.ids[last] = ""
		c.ids = c.ids[:last]
		c.meta[last] = nil
		c.meta = c.meta[:last]

		delete(c.byID, id)
		c.lex.Delete(id)

		removed++
	}

	return removed
}

// refreshLexicalLocked re-indexes a record's content after an upsert.
// Records without content leave the lexical index.
func (c *Collection) refreshLexicalLocked(id string) {
	internal := c.byID[id]

	if content := contentOf(c.meta[internal]); content != "" {
		c.lex.Add(id, content)
	} else {
		c.lex.Delete(id)
	}
}
