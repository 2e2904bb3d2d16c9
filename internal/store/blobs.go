package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"protospace/internal/models"
)

const blobColumns = "id, sha256, size_bytes, storage_backend, blob_key, created_at"

// UpsertBlob records blob unless a row with the same digest exists, and
// returns the stored row either way.
func (s *Store) UpsertBlob(ctx context.Context, blob *models.Blob) (*models.Blob, error) {
	var stored *models.Blob
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		stored, err = upsertBlobTx(ctx, tx, blob)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetBlob returns nil when id is unknown.
func (s *Store) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	return scanBlob(s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id))
}

// GetBlobBySHA256 returns nil when no blob has the digest.
func (s *Store) GetBlobBySHA256(ctx context.Context, sha string) (*models.Blob, error) {
	return scanBlob(s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE sha256 = ?`, normalizeDigest(sha)))
}

// ListUnreferencedBlobs returns blobs no prototype points at, oldest first.
// A limit of zero or less returns all of them.
func (s *Store) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+blobColumns+` FROM blobs
		WHERE NOT EXISTS (SELECT 1 FROM prototypes p WHERE p.image_blob_id = blobs.id)
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blobs []models.Blob
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, *blob)
	}
	return blobs, rows.Err()
}

// ReclaimBlob deletes the row for id while it is unreferenced and calls
// remove for its object inside the same write transaction. Commits that would
// bind the row wait on that transaction, so an object is never removed from
// under a prototype. A remove error rolls the row back. The result is false
// when the row was missing or referenced.
func (s *Store) ReclaimBlob(ctx context.Context, id string, remove func(context.Context, models.Blob) error) (bool, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		blob, err := scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if blob == nil {
			return errNoRows
		}
		if err := requireAffected(tx.ExecContext(ctx, `
			DELETE FROM blobs WHERE id = ?
			AND NOT EXISTS (SELECT 1 FROM prototypes p WHERE p.image_blob_id = blobs.id)`, id)); err != nil {
			return err
		}
		return remove(ctx, *blob)
	})
	if errors.Is(err, errNoRows) {
		return false, nil
	}
	return err == nil, err
}

func upsertBlobTx(ctx context.Context, tx *sql.Tx, blob *models.Blob) (*models.Blob, error) {
	if err := normalizeBlob(blob); err != nil {
		return nil, err
	}
	if blob.ID == "" {
		id, err := blobIDs.mint(ctx, tx)
		if err != nil {
			return nil, err
		}
		blob.ID = id
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blobs (`+blobColumns+`) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (sha256) DO NOTHING`,
		blob.ID, blob.SHA256, blob.SizeBytes, blob.StorageBackend, blob.BlobKey, dbFormatTime(blob.CreatedAt)); err != nil {
		return nil, fmt.Errorf("insert blob %s: %w", blob.SHA256, err)
	}

	stored, err := scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE sha256 = ?`, blob.SHA256))
	if err == nil && stored == nil {
		err = fmt.Errorf("blob %s missing after upsert", blob.SHA256)
	}
	return stored, err
}

func normalizeBlob(blob *models.Blob) error {
	if blob == nil {
		return fmt.Errorf("blob is required")
	}
	blob.ID = strings.TrimSpace(blob.ID)
	blob.SHA256 = normalizeDigest(blob.SHA256)
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	switch {
	case blob.SHA256 == "":
		return fmt.Errorf("sha256 is required")
	case blob.BlobKey == "":
		return fmt.Errorf("blob_key is required")
	case blob.SizeBytes < 0:
		return fmt.Errorf("size_bytes must be >= 0")
	}
	if strings.TrimSpace(blob.StorageBackend) == "" {
		blob.StorageBackend = "local_cas"
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}
	return nil
}

func normalizeDigest(sha string) string {
	return strings.ToLower(strings.TrimSpace(sha))
}

func scanBlob(row rowScanner) (*models.Blob, error) {
	var (
		blob      models.Blob
		createdAt string
	)
	err := row.Scan(&blob.ID, &blob.SHA256, &blob.SizeBytes, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if blob.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	return &blob, nil
}
