package models

import "time"

// Comment is a remark attached to a prototype. Comments are never edited.
type Comment struct {
	ID          string    `json:"id"`
	PrototypeID string    `json:"prototype_id"`
	UserID      string    `json:"user_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`

	AuthorName string `json:"author_name,omitempty"`
}
