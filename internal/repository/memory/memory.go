// Package memory provides a process-local repository.Repository.
package memory

import (
	"context"
	"sync"

	"nexus-support-service/internal/repository"
)

// Repository keeps values in a map guarded by a RWMutex. Values are
// stored by copy; contents do not survive a restart.
type Repository[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// New creates an empty in-memory repository.
func New[T any]() *Repository[T] {
	return &Repository[T]{items: make(map[string]T)}
}

func (r *Repository[T]) Get(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, repository.ErrNotFound
	}
	return v, nil
}

func (r *Repository[T]) Put(_ context.Context, id string, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = v
	return nil
}

func (r *Repository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *Repository[T]) List(_ context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.items))
	for _, v := range r.items {
		out = append(out, v)
	}
	return out, nil
}

// Len returns the number of stored values.
func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var _ repository.Repository[string] = (*Repository[string])(nil)
