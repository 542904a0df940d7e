package embedding

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader resolves a model name to a ready-to-use Model. Loading may be
// expensive (weight downloads, memory mapping); the registry guarantees it
// runs at most once per name at a time.
type Loader func(ctx context.Context, name string) (Model, error)

// Registry caches loaded models by name. Concurrent first requests for the
// same name share a single loader call; requests for different names load
// independently.
type Registry struct {
	loader Loader
	group  singleflight.Group

	mu     sync.RWMutex
	models map[string]Model
}

// NewRegistry creates a registry backed by loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader: loader,
		models: make(map[string]Model),
	}
}

// Register stores a pre-built model under its own name, bypassing the
// loader. An existing model with the same name is replaced.
func (r *Registry) Register(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[m.Name()] = m
}

// Get returns the model for name, loading it on first use. Failed loads are
// not cached; the next Get retries. During a shared load the first caller's
// context governs the loader call.
func (r *Registry) Get(ctx context.Context, name string) (Model, error) {
	r.mu.RLock()
	m, ok := r.models[name]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	if r.loader == nil {
		return nil, &ModelLoadError{Name: name, cause: fmt.Errorf("no loader configured")}
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		// A concurrent load may have finished between the read above and
		// joining the flight.
		r.mu.RLock()
		m, ok := r.models[name]
		r.mu.RUnlock()
		if ok {
			return m, nil
		}

		loaded, err := r.loader(ctx, name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.models[name] = loaded
		r.mu.Unlock()

		return loaded, nil
	})
	if err != nil {
		return nil, &ModelLoadError{Name: name, cause: err}
	}

	return v.(Model), nil
}

// Loaded returns the names of all currently loaded models.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}

	return names
}
