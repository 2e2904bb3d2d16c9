package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"protospace/internal/models"
)

// CreateSession records a browser session for userID. Only the hash of the
// cookie token is stored.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error {
	userID, tokenHash = strings.TrimSpace(userID), strings.TrimSpace(tokenHash)
	switch {
	case userID == "":
		return fmt.Errorf("user id is required")
	case tokenHash == "":
		return fmt.Errorf("token hash is required")
	}

	id, err := randomHexID("se")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetUserBySessionTokenHash resolves a live session to its user. Expired,
// revoked and unknown sessions all yield nil.
func (s *Store) GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+qualifiedUserColumns("u")+`
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.revoked_at IS NULL AND s.expires_at > ?`,
		tokenHash, dbFormatTime(now)))
}

// RevokeSessionByTokenHash ends one session. Revoking twice keeps the first
// revocation time.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		dbFormatTime(revokedAt), tokenHash)
	return err
}

// DeleteExpiredSessions drops sessions that expired or were revoked at or
// before cutoff and reports how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	at := dbFormatTime(cutoff)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? OR revoked_at <= ?`, at, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
