package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"protospace/internal/core"
	"protospace/internal/models"
)

type authContextKey struct{}

type authPrincipal struct {
	AuthType string
	User     *models.User
}

func contextWithAuthPrincipal(ctx context.Context, principal authPrincipal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

func authPrincipalFromContext(ctx context.Context) (authPrincipal, bool) {
	if ctx == nil {
		return authPrincipal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(authPrincipal)
	return principal, ok && principal.User != nil
}

// identityFrom converts the resolved principal into the explicit identity the
// core consumes.
func identityFrom(r *http.Request) core.Identity {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		return core.Anonymous()
	}
	return core.AuthenticatedAs(principal.User.ID)
}

func currentUser(r *http.Request) *models.User {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return principal.User
}

var errInvalidBearerToken = errors.New("invalid bearer token")

// withIdentity resolves the caller from a bearer token or session cookie.
// Unresolvable sessions fall back to anonymous; a bad bearer token is rejected.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if token, ok := bearerToken(r); ok {
			user, err := s.userFromBearer(r.Context(), token)
			if err != nil {
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorizedCode(errInvalidBearerToken, ErrCodeUnauthorized))
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithAuthPrincipal(r.Context(), authPrincipal{AuthType: authTypeBearer, User: user})))
			return
		}

		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			user, err := s.authService.AuthenticateSessionToken(r.Context(), cookie.Value, time.Now().UTC())
			if err != nil {
				s.log().Error("resolve session", "error", err)
			}
			if user != nil {
				r = r.WithContext(contextWithAuthPrincipal(r.Context(), authPrincipal{AuthType: authTypeSession, User: user}))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userFromBearer(ctx context.Context, token string) (*models.User, error) {
	if s.tokens == nil {
		return nil, errInvalidBearerToken
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.authService.LookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidBearerToken
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
