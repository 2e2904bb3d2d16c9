package models

import (
	"strings"
	"time"
)

// Image is the stored image reference of a prototype.
type Image struct {
	BlobID    string `json:"blob_id"`
	SHA256    string `json:"sha256,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Present reports whether the image refers to stored, non-empty content.
func (i Image) Present() bool {
	return strings.TrimSpace(i.BlobID) != "" && i.SizeBytes > 0
}

// Prototype is one published work. UserID is assigned at creation and never changes.
type Prototype struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CatchCopy string    `json:"catch_copy"`
	Concept   string    `json:"concept"`
	Image     Image     `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OwnerName is joined from users on read paths.
	OwnerName string `json:"owner_name,omitempty"`
}
