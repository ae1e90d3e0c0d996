package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore stores opaque blobs (receipt images, archived reports) by key
type ObjectStore interface {
	// Upload stores data under key and returns the key. A negative size
	// buffers data to determine its length.
	Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a temporary GET URL for key
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
