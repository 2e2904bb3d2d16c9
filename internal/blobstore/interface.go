package blobstore

import (
	"context"
	"io"
)

// PutResult identifies the stored copy of one payload.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore holds prototype image bytes. Keys are derived from content, so
// putting the same bytes twice yields the same key.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Backend names the storage backend recorded with each blob row.
	Backend() string
}

// contentKey fans digests out over two directory levels:
// sha256/ab/cd/abcd....
func contentKey(digest string) string {
	return "sha256/" + digest[:2] + "/" + digest[2:4] + "/" + digest
}
