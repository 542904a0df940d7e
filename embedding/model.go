package embedding

import (
	"context"

	"github.com/ares-labs/aresvec/model"
)

// Model computes dense embeddings. Implementations must be safe for
// concurrent use; the worker pool calls Embed from multiple goroutines.
type Model interface {
	// Name identifies the model. It is part of every cache key, so two
	// models producing different vectors must not share a name.
	Name() string

	// Dimensions is the length of every vector Embed returns.
	Dimensions() int

	// Embed returns one vector per input text, index-aligned.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseModel is an optional capability for models that also produce sparse
// term-weight vectors, used by keyword-aware search strategies.
type SparseModel interface {
	Model

	// EmbedSparse returns one sparse vector per input text, index-aligned,
	// with indices sorted ascending.
	EmbedSparse(ctx context.Context, texts []string) ([]model.SparseVector, error)
}
