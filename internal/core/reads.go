package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"protospace/internal/models"
)

// Detail is a prototype with its owner and comments, oldest comment first.
type Detail struct {
	Prototype models.Prototype
	Owner     *models.User
	Comments  []models.Comment
}

// UserPage is a user's public profile with their prototypes.
type UserPage struct {
	User       models.User
	Prototypes []models.Prototype
}

// ImageContent is an open stream of a prototype image.
type ImageContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// Listing returns all prototypes, newest first.
func (s *Service) Listing(ctx context.Context) ([]models.Prototype, error) {
	prototypes, err := s.store.ListPrototypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prototypes: %w", err)
	}
	return prototypes, nil
}

// Detail returns one prototype with its owner and comments.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	p, err := s.store.GetPrototype(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("load prototype: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	owner, err := s.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	comments, err := s.store.ListComments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return &Detail{Prototype: *p, Owner: owner, Comments: comments}, nil
}

// UserPage returns one user's profile and prototypes.
func (s *Service) UserPage(ctx context.Context, userID string) (*UserPage, error) {
	user, err := s.store.GetUserByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	prototypes, err := s.store.ListPrototypesByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list user prototypes: %w", err)
	}
	return &UserPage{User: *user, Prototypes: prototypes}, nil
}

// OpenImage opens the stored image of a prototype.
func (s *Service) OpenImage(ctx context.Context, prototypeID string) (ImageContent, error) {
	var zero ImageContent
	p, err := s.store.GetPrototype(ctx, strings.TrimSpace(prototypeID))
	if err != nil {
		return zero, fmt.Errorf("load prototype: %w", err)
	}
	if p == nil || !p.Image.Present() {
		return zero, ErrNotFound
	}
	blob, err := s.store.GetBlob(ctx, p.Image.BlobID)
	if err != nil {
		return zero, fmt.Errorf("load blob: %w", err)
	}
	if blob == nil {
		return zero, ErrNotFound
	}
	if s.blobs == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	reader, err := s.blobs.Open(ctx, blob.BlobKey)
	if err != nil {
		return zero, fmt.Errorf("open blob: %w", err)
	}

	mediaType := p.Image.MediaType
	if mediaType == "" {
		mediaType = fallbackImageMediaType
	}
	return ImageContent{
		Reader:    reader,
		SizeBytes: blob.SizeBytes,
		MediaType: mediaType,
		Filename:  p.Image.Filename,
	}, nil
}
