package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists at a path.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the object storage contract. Paths are bucket keys such as
// "restaurants/r1/logo_<uuid>.png".
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, body []byte) error
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}
