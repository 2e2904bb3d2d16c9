package store

import (
	"context"
	"time"

	"protospace/internal/core"
	"protospace/internal/models"
)

// UserStore is the persistence surface for accounts and browser sessions.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ core.Store = (*Store)(nil)
	_ UserStore  = (*Store)(nil)
)
