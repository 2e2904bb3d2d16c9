package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"protospace/internal/blobstore"
	"protospace/internal/models"
)

// Service runs the mutation protocol against a record store and a blob store.
type Service struct {
	store  Store
	blobs  blobstore.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, blobs blobstore.BlobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		logger: logger.With("component", "prototypes"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SubmitCreate publishes a new prototype owned by the acting identity.
func (s *Service) SubmitCreate(ctx context.Context, identity Identity, fields PrototypeFields) (Outcome, error) {
	if !identity.Authenticated() {
		return denied(ViewSignIn, ErrUnauthenticated), nil
	}

	candidate := Merge(models.Prototype{}, fields)
	if violations := ValidatePrototype(candidate); len(violations) > 0 {
		return rejected(ViewNewForm, "", echoOf(candidate), violations), nil
	}

	now := s.now()
	p := &models.Prototype{
		UserID:    identity.UserID,
		Title:     candidate.Title,
		CatchCopy: candidate.CatchCopy,
		Concept:   candidate.Concept,
		CreatedAt: now,
		UpdatedAt: now,
	}
	blob, image, err := s.putUpload(ctx, candidate.Upload)
	if err != nil {
		return Outcome{}, err
	}
	p.Image = image

	if err := s.store.CreatePrototype(ctx, p, blob); err != nil {
		return Outcome{}, fmt.Errorf("create prototype: %w", err)
	}
	if err := s.ensureStored(ctx, blob, candidate.Upload); err != nil {
		return Outcome{}, err
	}
	s.logger.Info("prototype created", "prototype_id", p.ID, "user_id", p.UserID)
	return committed(ViewListing, p.ID), nil
}

// SubmitUpdate applies a partial submission to a prototype owned by the acting identity.
func (s *Service) SubmitUpdate(ctx context.Context, identity Identity, id string, fields PrototypeFields) (Outcome, error) {
	stored, outcome, err := s.guard(ctx, identity, id)
	if err != nil || stored == nil {
		return outcome, err
	}

	candidate := Merge(*stored, fields)
	if violations := ValidatePrototype(candidate); len(violations) > 0 {
		return rejected(ViewEditForm, stored.ID, echoOf(candidate), violations), nil
	}

	updated := *stored
	updated.Title = candidate.Title
	updated.CatchCopy = candidate.CatchCopy
	updated.Concept = candidate.Concept
	updated.Image = candidate.Image
	updated.UpdatedAt = s.now()

	blob, image, err := s.putUpload(ctx, candidate.Upload)
	if err != nil {
		return Outcome{}, err
	}
	if blob != nil {
		updated.Image = image
	}

	ok, err := s.store.UpdatePrototype(ctx, &updated, blob)
	if err != nil {
		return Outcome{}, fmt.Errorf("update prototype: %w", err)
	}
	if !ok {
		return denied(ViewDefault, ErrNotFound), nil
	}
	if err := s.ensureStored(ctx, blob, candidate.Upload); err != nil {
		return Outcome{}, err
	}
	s.logger.Info("prototype updated", "prototype_id", updated.ID, "image_replaced", blob != nil)
	return committed(ViewDetail, updated.ID), nil
}

// SubmitDelete removes a prototype owned by the acting identity together with its comments.
func (s *Service) SubmitDelete(ctx context.Context, identity Identity, id string) (Outcome, error) {
	stored, outcome, err := s.guard(ctx, identity, id)
	if err != nil || stored == nil {
		return outcome, err
	}

	ok, err := s.store.DeletePrototype(ctx, stored.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("delete prototype: %w", err)
	}
	if !ok {
		return denied(ViewDefault, ErrNotFound), nil
	}
	s.logger.Info("prototype deleted", "prototype_id", stored.ID)
	return committed(ViewListing, stored.ID), nil
}

// SubmitComment attaches a comment to an existing prototype.
func (s *Service) SubmitComment(ctx context.Context, identity Identity, prototypeID, text string) (Outcome, error) {
	if !identity.Authenticated() {
		return denied(ViewSignIn, ErrUnauthenticated), nil
	}

	parent, err := s.store.GetPrototype(ctx, strings.TrimSpace(prototypeID))
	if err != nil {
		return Outcome{}, fmt.Errorf("load prototype: %w", err)
	}
	if parent == nil {
		return denied(ViewDefault, ErrNotFound), nil
	}

	if violations := ValidateComment(text); len(violations) > 0 {
		return rejected(ViewDetail, parent.ID, FormEcho{}, violations), nil
	}

	comment := &models.Comment{
		PrototypeID: parent.ID,
		UserID:      identity.UserID,
		Text:        text,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return Outcome{}, fmt.Errorf("create comment: %w", err)
	}
	s.logger.Debug("comment created", "comment_id", comment.ID, "prototype_id", parent.ID)
	return committed(ViewDetail, parent.ID), nil
}

// LoadForEdit returns the stored prototype when the identity may edit it.
// Missing and foreign records both yield a denial.
func (s *Service) LoadForEdit(ctx context.Context, identity Identity, id string) (*models.Prototype, Outcome, error) {
	return s.guard(ctx, identity, id)
}

// guard loads the record and applies the ownership guard. A nil record with a
// nil error means the returned outcome is a denial.
func (s *Service) guard(ctx context.Context, identity Identity, id string) (*models.Prototype, Outcome, error) {
	stored, err := s.store.GetPrototype(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("load prototype: %w", err)
	}
	if Authorize(identity, stored) == Allow {
		return stored, Outcome{}, nil
	}
	if stored == nil {
		return nil, denied(ViewDefault, ErrNotFound), nil
	}
	s.logger.Debug("mutation denied", "prototype_id", stored.ID, "authenticated", identity.Authenticated())
	return nil, denied(ViewDefault, ErrForbidden), nil
}

// putUpload stores image bytes and returns the blob row to record with the prototype.
func (s *Service) putUpload(ctx context.Context, upload *Upload) (*models.Blob, models.Image, error) {
	if upload == nil {
		return nil, models.Image{}, nil
	}
	if s.blobs == nil {
		return nil, models.Image{}, fmt.Errorf("blob store is not configured")
	}

	result, err := s.blobs.Put(ctx, bytes.NewReader(upload.Data))
	if err != nil {
		return nil, models.Image{}, fmt.Errorf("store image: %w", err)
	}

	blob := &models.Blob{
		SHA256:         result.SHA256,
		SizeBytes:      result.SizeBytes,
		StorageBackend: s.blobs.Backend(),
		BlobKey:        result.BlobKey,
		CreatedAt:      s.now(),
	}
	image := models.Image{
		SHA256:    result.SHA256,
		SizeBytes: result.SizeBytes,
		Filename:  strings.TrimSpace(upload.Filename),
		MediaType: upload.SniffedMediaType(),
	}
	return blob, image, nil
}

// ensureStored re-puts an upload whose object vanished between Put and
// commit. Only a blob GC that reclaimed the same digest in that window can
// cause this; once the commit has bound the row, GC leaves the object alone.
func (s *Service) ensureStored(ctx context.Context, blob *models.Blob, upload *Upload) error {
	if blob == nil || upload == nil {
		return nil
	}
	rc, err := s.blobs.Open(ctx, blob.BlobKey)
	if err == nil {
		return rc.Close()
	}
	if !errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("check image %s: %w", blob.SHA256, err)
	}
	s.logger.Warn("image reclaimed before commit, storing again", "sha256", blob.SHA256)
	if _, err := s.blobs.Put(ctx, bytes.NewReader(upload.Data)); err != nil {
		return fmt.Errorf("restore image: %w", err)
	}
	return nil
}
