package embedding

import (
	"errors"
	"fmt"
)

// ErrSparseNotSupported is returned by Service.EmbedSparse when the
// underlying model does not implement SparseModel.
var ErrSparseNotSupported = errors.New("model does not support sparse embeddings")

// ModelLoadError indicates that resolving a model name through the registry
// loader failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ModelLoadError struct {
	Name  string
	cause error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Name, e.cause)
}

func (e *ModelLoadError) Unwrap() error { return e.cause }

// ComputeError indicates that an embedding computation failed or was
// abandoned. Cancellation is preserved: errors.Is(err, context.Canceled)
// still holds when the cause was a cancelled context.
//
// The original underlying error can be accessed via errors.Unwrap.
type ComputeError struct {
	Model string
	cause error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("embed with model %q: %v", e.Model, e.cause)
}

func (e *ComputeError) Unwrap() error { return e.cause }
