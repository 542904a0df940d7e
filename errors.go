package aresvec

import (
	"errors"
	"fmt"

	"github.com/ares-labs/aresvec/embedding"
	"github.com/ares-labs/aresvec/hnsw"
	"github.com/ares-labs/aresvec/persistence"
	"github.com/ares-labs/aresvec/search"
)

var (
	// ErrNotFound is returned when a record id does not exist in its
	// collection.
	ErrNotFound = errors.New("not found")

	// ErrCollectionNotFound is returned when an operation names an
	// unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating, loading, or
	// restoring a collection whose name is already registered.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrClosed is returned by collection operations invoked after
	// Close.
	ErrClosed = errors.New("engine is closed")

	// ErrInvalidK is returned when a search asks for fewer than one
	// result.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidWeights is returned at construction when the hybrid
	// weights are negative or do not sum to 1.0.
	ErrInvalidWeights = errors.New("invalid hybrid weights")

	// ErrModelLoadFailure is returned when resolving an embedding model
	// through the configured loader fails.
	ErrModelLoadFailure = errors.New("model load failure")

	// ErrEmbeddingCompute is returned when embedding inference fails or
	// is abandoned.
	ErrEmbeddingCompute = errors.New("embedding compute failure")

	// ErrDimensionMismatch matches any *DimensionMismatchError via
	// errors.Is.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCorruptPersistedFile marks a persisted collection file that
	// failed validation. It is the persistence package's sentinel,
	// re-exported so callers only need this package.
	ErrCorruptPersistedFile = persistence.ErrCorruptPersistedFile

	// ErrSparseNotSupported is returned by sparse operations when the
	// embedding model has no sparse capability.
	ErrSparseNotSupported = embedding.ErrSparseNotSupported
)

// DimensionMismatchError reports a vector whose length does not match the
// collection's dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// translateError maps package-local errors onto this package's taxonomy.
// Errors without a mapping pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *hnsw.DimensionMismatchError
	if errors.As(err, &dm) {
		return &DimensionMismatchError{Expected: dm.Expected, Actual: dm.Actual}
	}

	var ml *embedding.ModelLoadError
	if errors.As(err, &ml) {
		return fmt.Errorf("%w: %w", ErrModelLoadFailure, err)
	}
	var ce *embedding.ComputeError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %w", ErrEmbeddingCompute, err)
	}

	if errors.Is(err, search.ErrInvalidTopK) || errors.Is(err, hnsw.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, search.ErrInvalidWeights) {
		return fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}

	return err
}
