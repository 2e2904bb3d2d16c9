package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and assets.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /static/", s.staticHandler())

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /prototypes/new", s.handleNewPrototype)
	mux.HandleFunc("POST /prototypes", s.handleCreatePrototype)
	mux.HandleFunc("GET /prototypes/{id}", s.handleShowPrototype)
	mux.HandleFunc("GET /prototypes/{id}/edit", s.handleEditPrototype)
	mux.HandleFunc("PATCH /prototypes/{id}", s.handleUpdatePrototype)
	mux.HandleFunc("DELETE /prototypes/{id}", s.handleDeletePrototype)
	mux.HandleFunc("POST /prototypes/{id}/comments", s.handleCreateComment)
	mux.HandleFunc("GET /users/{id}", s.handleShowUser)
	mux.HandleFunc("GET /images/{id}", s.handleImage)

	// Browser accounts.
	mux.HandleFunc("GET /users/sign_up", s.handleSignUpForm)
	mux.HandleFunc("POST /users/sign_up", s.handleSignUp)
	mux.HandleFunc("GET /users/sign_in", s.handleSignInForm)
	mux.HandleFunc("POST /users/sign_in", s.handleSignIn)
	mux.HandleFunc("POST /users/sign_out", s.handleSignOut)

	// JSON API.
	mux.HandleFunc("POST /v1/auth/token", s.handleAuthToken)
	mux.HandleFunc("GET /v1/auth/me", s.handleAuthMe)
	mux.HandleFunc("POST /v1/users", s.handleAPISignUp)
	mux.HandleFunc("GET /v1/users/{id}", s.handleGetUser)
	mux.HandleFunc("GET /v1/prototypes", s.handleListPrototypes)
	mux.HandleFunc("POST /v1/prototypes", s.handleAPICreatePrototype)
	mux.HandleFunc("GET /v1/prototypes/{id}", s.handleGetPrototype)
	mux.HandleFunc("PATCH /v1/prototypes/{id}", s.handleAPIUpdatePrototype)
	mux.HandleFunc("DELETE /v1/prototypes/{id}", s.handleAPIDeletePrototype)
	mux.HandleFunc("POST /v1/prototypes/{id}/comments", s.handleAPICreateComment)

	return mux
}
