// Package model defines the data types shared across the engine.
//
// # Ingest Types
//
//   - Document: raw text unit handed to Upsert (id, content, metadata)
//   - VectorRecord: stored unit (id, embedding, metadata)
//   - IngestReport: per-call outcome of a document upsert
//
// # Query Types
//
//   - SearchResult: scored document, optionally carrying a rerank score
//   - SparseVector: optional sparse embedding representation
//
// # Descriptors
//
//   - CollectionInfo / CollectionStats: collection listings and sizing
//
// The package carries no behavior beyond small accessors so that every
// component can depend on it without cycles.
package model
