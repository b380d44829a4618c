// Package storage abstracts where media files live. The site writes
// derived image variants (and raw uploads) under a configured prefix;
// reads happen by the stored path. Overwriting an existing path is
// allowed and expected; regenerating a variant replaces it in place.
package storage

import (
	"context"
	"io"
)

// Backend is the shared media store. Paths are forward-slash keys
// relative to the backend's root, e.g. "uploads/portrait_thumbnail.png".
type Backend interface {
	// Save writes the object at path, replacing any existing object.
	Save(ctx context.Context, path, contentType string, data []byte) error
	// Open reads the object at path. The caller must close the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the object at path. Deleting a missing object is
	// not an error.
	Delete(ctx context.Context, path string) error
}
