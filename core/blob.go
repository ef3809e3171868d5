package core

import (
	"context"
	"io"
)

// BlobStore stores uploaded files and hands back their public URL.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes the object behind a URL previously returned by Put.
	Delete(ctx context.Context, url string) error
}
