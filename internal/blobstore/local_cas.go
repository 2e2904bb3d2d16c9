package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BackendLocalCAS is the backend name of the on-disk store.
const BackendLocalCAS = "local_cas"

var (
	// ErrNotFound is returned by Open when no object exists for a key.
	ErrNotFound = errors.New("blob not found")

	errNotConfigured = errors.New("blob store is not configured")
	errInvalidKey    = errors.New("invalid blob key")
)

// LocalCAS keeps image bytes in a content-addressed directory tree. Uploads
// are staged under root/tmp and renamed into place once their digest is known.
type LocalCAS struct {
	root    string
	staging string
}

// NewLocalCAS creates root and its staging directory when missing.
func NewLocalCAS(root string) (*LocalCAS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(abs, "tmp")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalCAS{root: abs, staging: staging}, nil
}

func (c *LocalCAS) Backend() string {
	return BackendLocalCAS
}

func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (PutResult, error) {
	if c == nil {
		return PutResult{}, errNotConfigured
	}
	if r == nil {
		return PutResult{}, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	staged, result, err := c.stage(r)
	if err != nil {
		return PutResult{}, err
	}
	defer os.Remove(staged)

	dst := filepath.Join(c.root, filepath.FromSlash(result.BlobKey))
	if exists(dst) {
		return result, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return PutResult{}, err
	}
	// A concurrent Put of the same bytes may win the rename.
	if err := os.Rename(staged, dst); err != nil && !exists(dst) {
		return PutResult{}, fmt.Errorf("store blob %s: %w", result.SHA256, err)
	}
	return result, nil
}

// stage copies r to a temp file while hashing it.
func (c *LocalCAS) stage(r io.Reader) (string, PutResult, error) {
	tmp, err := os.CreateTemp(c.staging, "put-*")
	if err != nil {
		return "", PutResult{}, err
	}
	hash := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(tmp, hash), r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", PutResult{}, err
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	return tmp.Name(), PutResult{SHA256: digest, SizeBytes: size, BlobKey: contentKey(digest)}, nil
}

// Open fails with ErrNotFound for a well-formed key with no object.
func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := c.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// Delete is a no-op for keys with no object.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	path, err := c.resolve(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps key to a path under root, refusing keys that escape it.
func (c *LocalCAS) resolve(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", errNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(strings.TrimSpace(key))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return filepath.Join(c.root, rel), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
