package store

import (
	"context"
	"errors"
)

// ContentTypeText is the content type of converted output objects.
const ContentTypeText = "text/plain"

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrStoreUnavailable = errors.New("object store unavailable")
)

// Store captures the bucket/key operations the conversion pipeline needs.
// Implementations perform no retries; every fault is returned wrapping one of
// the sentinel errors above.
type Store interface {
	// Get reads the full object body.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put writes body at key, replacing any existing object, with empty user metadata.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}
