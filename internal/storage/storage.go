// Package storage abstracts where imported picture binaries live. The
// importer records only the key and URL; the bytes go to a Storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Storage is a flat key/value blob store with public URLs.
type Storage interface {
	// Upload stores Data under Key, replacing any existing object.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)
	// Delete removes key. Missing keys yield ErrNotFound.
	Delete(ctx context.Context, key string) error
	// GetURL returns the public URL of an existing key.
	GetURL(ctx context.Context, key string) (string, error)
}

// UploadInput describes one object to store. Size may be zero when unknown.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult is where an uploaded object ended up.
type UploadResult struct {
	Key string
	URL string
}
