package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"protospace/internal/models"
)

// CreateComment inserts one comment. The parent prototype must exist.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil {
		return fmt.Errorf("comment is required")
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if strings.TrimSpace(comment.ID) == "" {
			id, err := commentIDs.mint(ctx, tx)
			if err != nil {
				return err
			}
			comment.ID = id
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, prototype_id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
			comment.ID, comment.PrototypeID, comment.UserID, comment.Text, dbFormatTime(comment.CreatedAt))
		return err
	})
}

// ListComments returns the comments of one prototype, oldest first, with author names.
func (s *Store) ListComments(ctx context.Context, prototypeID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.prototype_id, c.user_id, c.text, c.created_at, u.name
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.prototype_id = ?
		ORDER BY c.created_at ASC, c.id ASC
	`, prototypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		if comment != nil {
			comments = append(comments, *comment)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// CountComments returns the number of comments attached to one prototype.
func (s *Store) CountComments(ctx context.Context, prototypeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE prototype_id = ?", prototypeID).Scan(&count)
	return count, err
}

func scanComment(scanner rowScanner) (*models.Comment, error) {
	var comment models.Comment
	var createdAt string
	err := scanner.Scan(&comment.ID, &comment.PrototypeID, &comment.UserID, &comment.Text, &createdAt, &comment.AuthorName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	comment.CreatedAt = parsed
	return &comment, nil
}
