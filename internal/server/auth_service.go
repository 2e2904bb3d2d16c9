package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	internalauth "protospace/internal/auth"
	"protospace/internal/models"
	"protospace/internal/store"
)

const (
	sessionCookieName = "protospace_session"
	authTypeBearer    = "bearer"
	authTypeSession   = "session"

	sessionTokenBytes = 32
)

var defaultSessionTTL = 24 * time.Hour

var (
	errInvalidCredentials = errors.New("invalid email or password")
	errNoAuthStore        = errors.New("auth store is required")
)

// AuthService owns accounts and browser sessions. A nil *AuthService is
// valid: lookups report no user and mutations fail with errNoAuthStore.
type AuthService struct {
	store      store.UserStore
	validator  *internalauth.RegistrationValidator
	sessionTTL time.Duration
}

type authLoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(userStore store.UserStore, sessionTTL time.Duration) *AuthService {
	if userStore == nil {
		return nil
	}
	return &AuthService{
		store:      userStore,
		validator:  internalauth.NewRegistrationValidator(),
		sessionTTL: positiveOr(sessionTTL, defaultSessionTTL),
	}
}

func positiveOr(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return fallback
}

func (a *AuthService) ready() bool { return a != nil && a.store != nil }

// Register validates a sign-up, stores the user and returns it. Validation
// failures, including a duplicate email, are *internalauth.RegistrationError.
func (a *AuthService) Register(ctx context.Context, reg internalauth.Registration, now time.Time) (*models.User, error) {
	if !a.ready() {
		return nil, errNoAuthStore
	}
	if err := a.validator.Validate(&reg); err != nil {
		return nil, err
	}
	if taken, err := a.store.EmailExists(ctx, reg.Email); err != nil || taken {
		return nil, takenOr(err)
	}

	hash, err := internalauth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        reg.Email,
		PasswordHash: hash,
		Name:         reg.Name,
		Profile:      reg.Profile,
		Occupation:   reg.Occupation,
		Position:     reg.Position,
		CreatedAt:    now,
	}
	// EmailExists races with concurrent sign-ups; the unique index decides.
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			err = nil
		}
		return nil, takenOr(err)
	}
	return user, nil
}

func takenOr(err error) error {
	if err != nil {
		return err
	}
	return internalauth.Taken()
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield errInvalidCredentials.
func (a *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if !a.ready() {
		return nil, errNoAuthStore
	}
	email = internalauth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}
	user, err := a.store.GetUserByEmail(ctx, email)
	switch {
	case err != nil:
		return nil, err
	case user == nil, !internalauth.VerifyPassword(user.PasswordHash, password):
		return nil, errInvalidCredentials
	}
	return user, nil
}

// Login authenticates and starts a browser session.
func (a *AuthService) Login(ctx context.Context, email, password string, now time.Time) (*authLoginResult, error) {
	user, err := a.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.StartSession(ctx, user, now)
}

// StartSession issues a session token for an already authenticated user.
// Only the token's digest is persisted.
func (a *AuthService) StartSession(ctx context.Context, user *models.User, now time.Time) (*authLoginResult, error) {
	if !a.ready() {
		return nil, errNoAuthStore
	}
	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	result := &authLoginResult{User: user, Token: token, ExpiresAt: now.Add(a.sessionTTL)}
	if err := a.store.CreateSession(ctx, user.ID, hashSessionToken(token), result.ExpiresAt, now); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	digest, ok := a.sessionDigest(token)
	if !ok {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, digest, now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	digest, ok := a.sessionDigest(token)
	if !ok {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, digest, now)
}

func (a *AuthService) LookupUser(ctx context.Context, id string) (*models.User, error) {
	if !a.ready() {
		return nil, nil
	}
	return a.store.GetUserByID(ctx, id)
}

func (a *AuthService) sessionDigest(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if !a.ready() || token == "" {
		return "", false
	}
	return hashSessionToken(token), true
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
