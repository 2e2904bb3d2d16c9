package models

import "time"

// User is a registered account. Users own prototypes and author comments.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Profile      string    `json:"profile,omitempty"`
	Occupation   string    `json:"occupation,omitempty"`
	Position     string    `json:"position,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
