// Package collection ties one named record set to its indexes: the
// proximity graph, the lexical index, and the metadata filter bitmaps.
//
// Records are addressed externally by string id and internally by the
// graph's dense uint32 ids. The id table, metadata table, and filter
// bitmaps are kept aligned with the graph arena; when a delete relocates
// the last graph node into the freed slot, the parallel structures follow.
// The lexical index is keyed by external ids on purpose: posting lists
// never need remapping.
package collection
