package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Open when no blob exists at the key.
var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for blob storage operations.
// Keys are the forward-slash relative paths produced by the allocator
// in this package; implementations root them however they like
// (a local directory, an S3 bucket).
type FileStorage interface {
	// Save writes the full content of r under objectKey and returns the
	// number of bytes written. An existing object at the key is
	// overwritten.
	Save(ctx context.Context, objectKey string, r io.Reader) (int64, error)

	// Open returns a reader over the object at objectKey. The caller
	// must close it.
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object at objectKey. Deleting a missing object
	// is not an error.
	Delete(ctx context.Context, objectKey string) error
}
