// Package storage fetches object metadata and byte ranges from an
// S3-compatible backing store.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound reports that the backing store has no object under the
// requested key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata describes a stored object. ContentType is optional; callers
// fall back to their own defaults when the store reports none.
type ObjectMetadata struct {
	Size        int64
	ContentType string
}

// Gateway is the narrow surface the streaming core consumes. Both calls may
// fail transiently; the core treats any failure as "object unavailable" and
// leaves retries to the implementation.
type Gateway interface {
	GetMetadata(ctx context.Context, key string) (ObjectMetadata, error)
	GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}
