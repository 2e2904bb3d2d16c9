package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error      string    `json:"error"`
	Code       string    `json:"code,omitempty"`
	ErrorCode  int       `json:"error_code,omitempty"`
	Violations []string  `json:"violations,omitempty"`
	Form       *FormEcho `json:"form,omitempty"`
}

// FormEcho carries the text fields of a rejected prototype submission.
type FormEcho struct {
	Title     string `json:"title"`
	CatchCopy string `json:"catch_copy"`
	Concept   string `json:"concept"`
}

// Prototype is the public representation of a prototype.
type Prototype struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OwnerName string    `json:"owner_name,omitempty"`
	Title     string    `json:"title"`
	CatchCopy string    `json:"catch_copy"`
	Concept   string    `json:"concept"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is the public representation of a comment.
type Comment struct {
	ID          string    `json:"id"`
	PrototypeID string    `json:"prototype_id"`
	UserID      string    `json:"user_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrototypeDetail is a prototype with its comments, oldest first.
type PrototypeDetail struct {
	Prototype
	Comments []Comment `json:"comments"`
}

// User is the public profile of a user.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Profile    string `json:"profile,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Position   string `json:"position,omitempty"`
}

// UserPage is a user's profile and prototypes.
type UserPage struct {
	User       User        `json:"user"`
	Prototypes []Prototype `json:"prototypes"`
}

// PrototypePatchRequest is the JSON form of a partial update. A nil field is
// omitted and keeps the stored value; an empty string is submitted as empty.
type PrototypePatchRequest struct {
	Title     *string `json:"title,omitempty"`
	CatchCopy *string `json:"catch_copy,omitempty"`
	Concept   *string `json:"concept,omitempty"`
}

// CommentCreateRequest creates one comment.
type CommentCreateRequest struct {
	Text string `json:"text"`
}

// TokenRequest exchanges credentials for an API token.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an API bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// MeResponse describes the caller identity.
type MeResponse struct {
	Authenticated bool   `json:"authenticated"`
	AuthType      string `json:"auth_type,omitempty"`
	User          *User  `json:"user,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}
