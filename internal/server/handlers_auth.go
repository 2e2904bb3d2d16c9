package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"protospace/internal/api"
	internalauth "protospace/internal/auth"
)

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt) / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func registrationFromForm(r *http.Request) internalauth.Registration {
	return internalauth.Registration{
		Email:                r.PostForm.Get("email"),
		Password:             r.PostForm.Get("password"),
		PasswordConfirmation: r.PostForm.Get("password_confirmation"),
		Name:                 r.PostForm.Get("name"),
		Profile:              r.PostForm.Get("profile"),
		Occupation:           r.PostForm.Get("occupation"),
		Position:             r.PostForm.Get("position"),
	}
}

func (s *Server) handleSignUpForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageSignUp, "Sign up", signUpView{})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		s.writeFormError(w, r, classifyFormError(err))
		return
	}
	reg := registrationFromForm(r)

	now := time.Now().UTC()
	user, err := s.authService.Register(r.Context(), reg, now)
	var regErr *internalauth.RegistrationError
	if errors.As(err, &regErr) {
		echo := reg
		echo.Email = internalauth.NormalizeEmail(echo.Email)
		echo.Password, echo.PasswordConfirmation = "", ""
		s.render(w, r, http.StatusUnprocessableEntity, pageSignUp, "Sign up", signUpView{Form: echo, Errors: regErr.Messages()})
		return
	}
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}

	result, err := s.authService.StartSession(r.Context(), user, now)
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.log().Info("user registered", "user_id", user.ID)
	s.setSessionCookie(w, r, result.Token, result.ExpiresAt)
	seeOther(w, r, "/")
}

func (s *Server) handleSignInForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageSignIn, "Sign in", signInView{})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		s.writeFormError(w, r, classifyFormError(err))
		return
	}
	email := r.PostForm.Get("email")

	result, err := s.authService.Login(r.Context(), email, r.PostForm.Get("password"), time.Now().UTC())
	if errors.Is(err, errInvalidCredentials) {
		s.log().Warn("sign in rejected", "remote_addr", r.RemoteAddr)
		s.render(w, r, http.StatusUnprocessableEntity, pageSignIn, "Sign in", signInView{
			Email:  internalauth.NormalizeEmail(email),
			Errors: []string{"Invalid email or password."},
		})
		return
	}
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}

	s.setSessionCookie(w, r, result.Token, result.ExpiresAt)
	seeOther(w, r, "/")
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := s.authService.RevokeSessionToken(r.Context(), cookie.Value, time.Now().UTC()); err != nil {
			s.renderInternalError(w, r, err)
			return
		}
	}
	clearSessionCookie(w, r)
	seeOther(w, r, "/")
}

func (s *Server) handleAPISignUp(w http.ResponseWriter, r *http.Request) {
	var reg internalauth.Registration
	if !s.decodeJSONReq(w, r, &reg) {
		return
	}

	user, err := s.authService.Register(r.Context(), reg, time.Now().UTC())
	var regErr *internalauth.RegistrationError
	if errors.As(err, &regErr) {
		errCode := ErrCodeInvalidSignUp
		if regErr.EmailTaken() {
			errCode = ErrCodeEmailTaken
		}
		s.writeErrorResponse(w, r, http.StatusUnprocessableEntity, unprocessable(regErr, errCode), api.ErrorResponse{Violations: regErr.Messages()})
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAPIUser(*user))
}

func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		s.writeErrorReq(w, r, http.StatusNotImplemented, apiError{
			status:  http.StatusNotImplemented,
			code:    "not_implemented",
			errCode: ErrCodeNotImplemented,
			err:     fmt.Errorf("api tokens are not configured"),
		})
		return
	}

	var req api.TokenRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	user, err := s.authService.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, errInvalidCredentials) {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorizedCode(err, ErrCodeInvalidCredentials))
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, api.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt.UTC(),
		UserID:    user.ID,
	})
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusOK, api.MeResponse{Authenticated: false})
		return
	}
	user := toAPIUser(*principal.User)
	s.writeJSON(w, http.StatusOK, api.MeResponse{
		Authenticated: true,
		AuthType:      principal.AuthType,
		User:          &user,
	})
}
