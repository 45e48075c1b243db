package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("blob not found")

// Store is content storage addressed by opaque, job-scoped keys. Large
// payloads (inputs, extracted text, summaries) live here so job records
// stay small.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
