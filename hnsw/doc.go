// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search.
//
// Nodes live in a dense, index-addressable arena; adjacency lists hold uint32
// indices into that arena rather than pointers. Every edge is kept strictly
// bidirectional, which bounds the work a delete has to do: all references to
// a node are exactly the adjacency lists of its own neighbors.
//
// The graph uses a multiple-readers/single-writer lock. Searches run
// concurrently; Insert, Replace, and Delete briefly exclude them.
package hnsw
