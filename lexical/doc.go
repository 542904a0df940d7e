// Package lexical provides the keyword side of retrieval: a unicode-aware
// tokenizer, an incremental in-memory BM25 index keyed by external record
// ids, and Levenshtein edit-distance helpers for fuzzy matching.
package lexical
