package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorePutOpenDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3Store(fake, "images", "/protospace/")

	first, err := store.Put(ctx, strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if !strings.HasPrefix(first.BlobKey, "sha256/") || first.SizeBytes != int64(len("png-bytes")) {
		t.Fatalf("unexpected put result: %#v", first)
	}
	if _, ok := fake.objects["protospace/"+first.BlobKey]; !ok {
		t.Fatalf("expected object under prefix, got keys %v", fake.objects)
	}

	second, err := store.Put(ctx, strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if second != first {
		t.Fatalf("expected identical content to dedupe: first=%#v second=%#v", first, second)
	}
	if fake.puts != 1 {
		t.Fatalf("expected one upload, got %d", fake.puts)
	}

	rc, err := store.Open(ctx, first.BlobKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("expected png-bytes, got %q", string(data))
	}

	if err := store.Delete(ctx, first.BlobKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, first.BlobKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestS3StoreRejectsTraversalKeys(t *testing.T) {
	store := newS3Store(newFakeS3(), "images", "")
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatal("expected invalid key error")
	}
	if err := store.Delete(context.Background(), ""); err == nil {
		t.Fatal("expected empty key error")
	}
}

func TestNewS3StoreRequiresBucketAndRegion(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Options{Region: "us-east-1"}); err == nil {
		t.Fatal("expected bucket error")
	}
	if _, err := NewS3Store(context.Background(), S3Options{Bucket: "images"}); err == nil {
		t.Fatal("expected region error")
	}
}
