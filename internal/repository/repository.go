// Package repository defines the keyed collection abstraction shared by the
// job, meeting and document stores.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no value is stored under the requested key.
var ErrNotFound = errors.New("repository: not found")

// Repository is a string-keyed collection of values.
type Repository[T any] interface {
	// Get returns the value stored under id or ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Put creates or replaces the value stored under id.
	Put(ctx context.Context, id string, v T) error

	// Delete removes id. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns every stored value in unspecified order.
	List(ctx context.Context) ([]T, error)
}
