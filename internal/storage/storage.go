// Package storage defines object storage for uploaded recordings and
// transcription output. Backends: local filesystem and Amazon S3 (or any
// S3-compatible service).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download when no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// Storage is a flat key/object store.
type Storage interface {
	// Upload writes the contents of r to key, replacing any existing object.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// Download returns a reader for the object at key. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URI returns the provider-native location of key, e.g. s3://bucket/key.
	URI(key string) string
}
