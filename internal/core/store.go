package core

import (
	"context"

	"protospace/internal/models"
)

// Store is the record persistence surface the protocol consumes.
//
// CreatePrototype and UpdatePrototype write the whole row atomically; when
// blob is non-nil it is upserted in the same transaction and p.Image.BlobID
// is set to the canonical blob id. DeletePrototype removes the record and its
// comments in one transaction.
type Store interface {
	GetPrototype(ctx context.Context, id string) (*models.Prototype, error)
	CreatePrototype(ctx context.Context, p *models.Prototype, blob *models.Blob) error
	UpdatePrototype(ctx context.Context, p *models.Prototype, blob *models.Blob) (bool, error)
	DeletePrototype(ctx context.Context, id string) (bool, error)
	ListPrototypes(ctx context.Context) ([]models.Prototype, error)
	ListPrototypesByUser(ctx context.Context, userID string) ([]models.Prototype, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, prototypeID string) ([]models.Comment, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)

	GetBlob(ctx context.Context, id string) (*models.Blob, error)
	ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error)
	// ReclaimBlob removes an unreferenced row and, through remove, its object
	// atomically with respect to commits. False means the row was kept.
	ReclaimBlob(ctx context.Context, id string, remove func(context.Context, models.Blob) error) (bool, error)
}
