package storage

import (
	"context"
	"io"
)

// ObjectStorage persists uploaded images under a caller-chosen key.
type ObjectStorage interface {
	// Upload writes reader under key, replacing any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL a browser can load the object from.
	GetURL(key string) string
}
