// Package storage provides remote object storage and transient local file
// capabilities. It defines the ObjectStore and TempFiles interfaces (ports)
// and implementations for S3, local disk, and scratch temp files.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectExists is returned by Put when NoOverwrite is set and an
	// object is already stored under the key.
	ErrObjectExists = errors.New("object already exists")
	// ErrInvalidKey is returned when a key is empty or escapes the store root.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutOptions controls how an object is written.
type PutOptions struct {
	// CacheControl is stored as object metadata by S3Store. DiskStore
	// ignores it; its Handler sends the header it was configured with.
	CacheControl string
	// NoOverwrite makes Put fail with ErrObjectExists instead of replacing
	// an existing object.
	NoOverwrite bool
}

// ObjectStore defines the interface for the remote object store that holds
// uploaded media.
type ObjectStore interface {
	// Put uploads body under key. size is the content length in bytes.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, opts PutOptions) error

	// PublicURL resolves the public URL for key. The boolean is false when
	// the store cannot produce a URL.
	PublicURL(ctx context.Context, key string) (string, bool)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// TempFiles defines the interface for per-request scratch files.
type TempFiles interface {
	// SaveTemp writes data to a new file whose name ends with name and
	// returns its path. The directory is created if missing.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}
