package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"protospace/internal/blobstore"
	"protospace/internal/models"
)

// memStore is an in-memory Store with the same atomicity as the SQL store:
// each call either applies fully or not at all.
type memStore struct {
	mu         sync.Mutex
	seq        int
	prototypes map[string]models.Prototype
	comments   map[string]models.Comment
	users      map[string]models.User
	blobs      map[string]models.Blob

	failWrites error
	writes     int
	// beforeCommit runs ahead of a create or update, outside the lock.
	beforeCommit func()
}

func newMemStore() *memStore {
	return &memStore{
		prototypes: map[string]models.Prototype{},
		comments:   map[string]models.Comment{},
		users:      map[string]models.User{},
		blobs:      map[string]models.Blob{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *memStore) addUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = models.User{ID: id, Name: name, Email: id + "@example.com"}
}

func (m *memStore) runBeforeCommit() {
	if hook := m.beforeCommit; hook != nil {
		m.beforeCommit = nil
		hook()
	}
}

func (m *memStore) GetPrototype(_ context.Context, id string) (*models.Prototype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prototypes[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) upsertBlobLocked(blob *models.Blob, p *models.Prototype) {
	if blob == nil {
		return
	}
	for _, existing := range m.blobs {
		if existing.SHA256 == blob.SHA256 {
			p.Image.BlobID = existing.ID
			return
		}
	}
	b := *blob
	b.ID = m.nextID("bl")
	m.blobs[b.ID] = b
	p.Image.BlobID = b.ID
}

func (m *memStore) CreatePrototype(_ context.Context, p *models.Prototype, blob *models.Blob) error {
	m.runBeforeCommit()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.writes++
	m.upsertBlobLocked(blob, p)
	if p.ID == "" {
		p.ID = m.nextID("pt")
	}
	m.prototypes[p.ID] = *p
	return nil
}

func (m *memStore) UpdatePrototype(_ context.Context, p *models.Prototype, blob *models.Blob) (bool, error) {
	m.runBeforeCommit()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return false, m.failWrites
	}
	stored, ok := m.prototypes[p.ID]
	if !ok {
		return false, nil
	}
	m.writes++
	m.upsertBlobLocked(blob, p)
	p.UserID = stored.UserID
	p.CreatedAt = stored.CreatedAt
	m.prototypes[p.ID] = *p
	return true, nil
}

func (m *memStore) DeletePrototype(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return false, m.failWrites
	}
	if _, ok := m.prototypes[id]; !ok {
		return false, nil
	}
	m.writes++
	for cid, c := range m.comments {
		if c.PrototypeID == id {
			delete(m.comments, cid)
		}
	}
	delete(m.prototypes, id)
	return true, nil
}

func (m *memStore) ListPrototypes(_ context.Context) ([]models.Prototype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Prototype, 0, len(m.prototypes))
	for _, p := range m.prototypes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ListPrototypesByUser(ctx context.Context, userID string) ([]models.Prototype, error) {
	all, _ := m.ListPrototypes(ctx)
	out := []models.Prototype{}
	for _, p := range all {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CreateComment(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	if _, ok := m.prototypes[c.PrototypeID]; !ok {
		return errors.New("foreign key violation")
	}
	m.writes++
	c.ID = m.nextID("cm")
	m.comments[c.ID] = *c
	return nil
}

func (m *memStore) ListComments(_ context.Context, prototypeID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.comments {
		if c.PrototypeID == prototypeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) commentCount(prototypeID string) int {
	comments, _ := m.ListComments(context.Background(), prototypeID)
	return len(comments)
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memStore) GetBlob(_ context.Context, id string) (*models.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *memStore) ListUnreferencedBlobs(_ context.Context, limit int) ([]models.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	referenced := map[string]bool{}
	for _, p := range m.prototypes {
		referenced[p.Image.BlobID] = true
	}
	out := []models.Blob{}
	for _, b := range m.blobs {
		if !referenced[b.ID] {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReclaimBlob(ctx context.Context, id string, remove func(context.Context, models.Blob) error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[id]
	if !ok {
		return false, nil
	}
	for _, p := range m.prototypes {
		if p.Image.BlobID == id {
			return false, nil
		}
	}
	if err := remove(ctx, blob); err != nil {
		return false, err
	}
	delete(m.blobs, id)
	return true, nil
}

// memBlobs is an in-memory content-addressed BlobStore.
type memBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    error
	failDelete map[string]bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, failDelete: map[string]bool{}}
}

func (b *memBlobs) Put(_ context.Context, r io.Reader) (blobstore.PutResult, error) {
	if b.failPut != nil {
		return blobstore.PutResult{}, b.failPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blobstore.PutResult{}, err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := "sha256/" + digest
	b.mu.Lock()
	b.objects[key] = data
	b.mu.Unlock()
	return blobstore.PutResult{SHA256: digest, SizeBytes: int64(len(data)), BlobKey: key}, nil
}

func (b *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete[key] {
		return errors.New("delete refused")
	}
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) Backend() string {
	return "memory"
}
