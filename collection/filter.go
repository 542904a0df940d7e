package collection

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ares-labs/aresvec/model"
)

// Filter selects records whose metadata value under Key equals Value.
// Filterable values are strings, booleans, and numbers; other types are
// never indexed and never match.
type Filter struct {
	Key   string
	Value any
}

// canonicalValue maps a metadata value to its bitmap key. The type prefix
// keeps string "5" apart from number 5; integer and float forms of the same
// number collapse to one key, so values survive a JSON reload (where all
// numbers come back as float64).
func canonicalValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return "s:" + t, true
	case bool:
		return "b:" + strconv.FormatBool(t), true
	case int:
		return "n:" + strconv.FormatInt(int64(t), 10), true
	case int8:
		return "n:" + strconv.FormatInt(int64(t), 10), true
	case int16:
		return "n:" + strconv.FormatInt(int64(t), 10), true
	case int32:
		return "n:" + strconv.FormatInt(int64(t), 10), true
	case int64:
		return "n:" + strconv.FormatInt(t, 10), true
	case uint:
		return "n:" + strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return "n:" + strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return "n:" + strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return "n:" + strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return "n:" + strconv.FormatUint(t, 10), true
	case float32:
		return "n:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case float64:
		return "n:" + strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "", false
	}
}

// bitmapForLocked resolves a filter to its bitmap, or nil when nothing can
// match. Caller holds at least a read lock.
func (c *Collection) bitmapForLocked(f *Filter) *roaring.Bitmap {
	cv, ok := canonicalValue(f.Value)
	if !ok {
		return nil
	}

	byValue, ok := c.bitmaps[f.Key]
	if !ok {
		return nil
	}

	return byValue[cv]
}

// MatchesFilter reports whether the record stored under id satisfies f.
// Unknown ids match nothing; a nil filter matches every stored record.
// Non-vector strategies use this to apply the same filter semantics as graph
// searches.
func (c *Collection) MatchesFilter(id string, f *Filter) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	internal, ok := c.byID[id]
	if !ok {
		return false
	}
	if f == nil {
		return true
	}

	bm := c.bitmapForLocked(f)

	return bm != nil && bm.Contains(internal)
}

// indexMetadataLocked adds a record's filterable values to the bitmaps. The
// reserved content entry belongs to the lexical index, not the filters.
func (c *Collection) indexMetadataLocked(id uint32, meta map[string]any) {
	for k, v := range meta {
		if k == model.ContentKey {
			continue
		}

		cv, ok := canonicalValue(v)
		if !ok {
			continue
		}

		byValue, ok := c.bitmaps[k]
		if !ok {
			byValue = make(map[string]*roaring.Bitmap)
			c.bitmaps[k] = byValue
		}

		bm, ok := byValue[cv]
		if !ok {
			bm = roaring.New()
			byValue[cv] = bm
		}

		bm.Add(id)
	}
}

// unindexMetadataLocked removes a record's filterable values, dropping
// emptied bitmaps.
func (c *Collection) unindexMetadataLocked(id uint32, meta map[string]any) {
	for k, v := range meta {
		if k == model.ContentKey {
			continue
		}

		cv, ok := canonicalValue(v)
		if !ok {
			continue
		}

		byValue, ok := c.bitmaps[k]
		if !ok {
			continue
		}

		if bm, ok := byValue[cv]; ok {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(byValue, cv)
			}
		}

		if len(byValue) == 0 {
			delete(c.bitmaps, k)
		}
	}
}

// relocateMetadataLocked follows a graph arena move: the record previously
// at from now lives at to.
func (c *Collection) relocateMetadataLocked(from, to uint32, meta map[string]any) {
	for k, v := range meta {
		if k == model.ContentKey {
			continue
		}

		cv, ok := canonicalValue(v)
		if !ok {
			continue
		}

		if byValue, ok := c.bitmaps[k]; ok {
			if bm, ok := byValue[cv]; ok {
				bm.Remove(from)
				bm.Add(to)
			}
		}
	}
}
