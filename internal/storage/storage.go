// Package storage contains the remote blob store abstraction backing the
// archive service. Implementations must rely on streaming I/O only.
package storage

import (
	"context"
	"io"
	"time"
)

// UploadOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1
// and the implementation will buffer/chunk as supported by the backend.
type UploadOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in the bucket.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// RemoteStore is the blob-store collaborator used by the archive service.
// All methods operate on a single pre-configured bucket.
type RemoteStore interface {
	// EnsureBucket creates the bucket if it does not exist. Idempotent.
	EnsureBucket(ctx context.Context) error
	// Upload stores an object under the given key.
	Upload(ctx context.Context, key string, r io.Reader, opt UploadOptions) (ObjectInfo, error)
	// List returns every object currently in the bucket.
	List(ctx context.Context) ([]ObjectInfo, error)
	// PublicURL returns a time-limited URL that can be used to download the
	// object without credentials.
	PublicURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Remove deletes a single object by key.
	Remove(ctx context.Context, key string) error
	// RemoveAll deletes the given objects, continuing past individual
	// failures; it returns the first error encountered, if any.
	RemoveAll(ctx context.Context, keys []string) error
}
