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

const prototypeSelect = `
	SELECT p.id, p.user_id, p.title, p.catch_copy, p.concept,
	       p.image_blob_id, b.sha256, b.size_bytes, p.image_filename, p.image_media_type,
	       p.created_at, p.updated_at, u.name
	FROM prototypes p
	JOIN blobs b ON b.id = p.image_blob_id
	JOIN users u ON u.id = p.user_id`

// CreatePrototype inserts one prototype. When blob is set it is upserted in
// the same transaction and p.Image is bound to the stored blob row.
func (s *Store) CreatePrototype(ctx context.Context, p *models.Prototype, blob *models.Blob) error {
	if p == nil {
		return fmt.Errorf("prototype is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := bindImageBlobTx(ctx, tx, p, blob); err != nil {
			return err
		}
		if strings.TrimSpace(p.ID) == "" {
			id, err := prototypeIDs.mint(ctx, tx)
			if err != nil {
				return err
			}
			p.ID = id
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prototypes (
				id, user_id, title, catch_copy, concept,
				image_blob_id, image_filename, image_media_type, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.Title, p.CatchCopy, p.Concept,
			p.Image.BlobID, nullIfEmpty(p.Image.Filename), nullIfEmpty(p.Image.MediaType),
			dbFormatTime(p.CreatedAt), dbFormatTime(p.UpdatedAt))
		return err
	})
}

// errNoRows rolls back a transaction whose target row is gone.
var errNoRows = errors.New("no rows affected")

// UpdatePrototype rewrites the mutable fields of one prototype in a single
// statement. The owner column is never written. It reports false when the
// prototype no longer exists.
func (s *Store) UpdatePrototype(ctx context.Context, p *models.Prototype, blob *models.Blob) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("prototype is required")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := bindImageBlobTx(ctx, tx, p, blob); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE prototypes
			SET title = ?, catch_copy = ?, concept = ?,
			    image_blob_id = ?, image_filename = ?, image_media_type = ?,
			    updated_at = ?
			WHERE id = ?`,
			p.Title, p.CatchCopy, p.Concept,
			p.Image.BlobID, nullIfEmpty(p.Image.Filename), nullIfEmpty(p.Image.MediaType),
			dbFormatTime(p.UpdatedAt), p.ID)
		return requireAffected(result, err)
	})
	if errors.Is(err, errNoRows) {
		return false, nil
	}
	return err == nil, err
}

// DeletePrototype removes one prototype and all of its comments in one
// transaction. It reports false when nothing was deleted.
func (s *Store) DeletePrototype(ctx context.Context, id string) (bool, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE prototype_id = ?", id); err != nil {
			return err
		}
		return requireAffected(tx.ExecContext(ctx, "DELETE FROM prototypes WHERE id = ?", id))
	})
	if errors.Is(err, errNoRows) {
		return false, nil
	}
	return err == nil, err
}

func requireAffected(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNoRows
	}
	return nil
}

// GetPrototype returns one prototype with its image metadata and owner name.
func (s *Store) GetPrototype(ctx context.Context, id string) (*models.Prototype, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, prototypeSelect+` WHERE p.id = ?`, id)
	return scanPrototype(row)
}

// ListPrototypes returns all prototypes, newest first.
func (s *Store) ListPrototypes(ctx context.Context) ([]models.Prototype, error) {
	return s.queryPrototypes(ctx, prototypeSelect+` ORDER BY p.created_at DESC, p.id DESC`)
}

// ListPrototypesByUser returns one user's prototypes, newest first.
func (s *Store) ListPrototypesByUser(ctx context.Context, userID string) ([]models.Prototype, error) {
	return s.queryPrototypes(ctx, prototypeSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC`, userID)
}

func (s *Store) queryPrototypes(ctx context.Context, query string, args ...any) ([]models.Prototype, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prototypes := []models.Prototype{}
	for rows.Next() {
		p, err := scanPrototype(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			prototypes = append(prototypes, *p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prototypes, nil
}

func bindImageBlobTx(ctx context.Context, tx *sql.Tx, p *models.Prototype, blob *models.Blob) error {
	if blob != nil {
		canonical, err := upsertBlobTx(ctx, tx, blob)
		if err != nil {
			return err
		}
		p.Image.BlobID = canonical.ID
		p.Image.SHA256 = canonical.SHA256
		p.Image.SizeBytes = canonical.SizeBytes
	}
	if strings.TrimSpace(p.Image.BlobID) == "" {
		return fmt.Errorf("image blob is required")
	}
	return nil
}

func scanPrototype(scanner rowScanner) (*models.Prototype, error) {
	var p models.Prototype
	var filename, mediaType sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.CatchCopy,
		&p.Concept,
		&p.Image.BlobID,
		&p.Image.SHA256,
		&p.Image.SizeBytes,
		&filename,
		&mediaType,
		&createdAt,
		&updatedAt,
		&p.OwnerName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Image.Filename = filename.String
	p.Image.MediaType = mediaType.String

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := dbParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parsedCreated
	p.UpdatedAt = parsedUpdated
	return &p, nil
}
