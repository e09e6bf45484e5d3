// Package storage defines the object store used for certificate templates and
// rendered artifacts, plus a filesystem-backed implementation.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// ObjectStorage stores opaque blobs under slash separated keys. Put overwrites.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
